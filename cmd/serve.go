package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/filiksyos/linkedin-search-app/internal/config"
	"github.com/filiksyos/linkedin-search-app/internal/logging"
	"github.com/filiksyos/linkedin-search-app/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the streaming chat endpoint",
	Long:  `Serve POST /api/chat and GET /api/status over HTTP for terminal or web clients.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if err := runServe(cfg); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	},
}

func runServe(cfg *config.Config) error {
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.Server.LogLevel), false)

	svc, err := newCompletionService(cfg, logger)
	if err != nil {
		return err
	}

	addr := firstNonEmpty(serveAddr, cfg.Server.Addr)
	srv, err := server.New(serverConfig(cfg, addr), svc, logger)
	if err != nil {
		return err
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Start()
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrCh:
		return err
	case <-sigCtx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return <-serverErrCh
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
