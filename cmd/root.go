package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/filiksyos/linkedin-search-app/internal/app"
	"github.com/filiksyos/linkedin-search-app/internal/config"
	"github.com/filiksyos/linkedin-search-app/internal/core"
	"github.com/filiksyos/linkedin-search-app/internal/logging"
)

var (
	endpointFlag string
	userIDFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "linkedin-search",
	Short: "Chat your way to LinkedIn profiles",
	Long: `linkedin-search is a terminal chat assistant that finds LinkedIn profiles.
Describe who you are looking for and the assistant searches and summarizes matching profiles.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if err := runChat(cfg); err != nil {
			log.Fatalf("Application error: %v", err)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution error: %v", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(config.LoadEnv)

	rootCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "chat endpoint URL (default: run one in-process)")
	rootCmd.PersistentFlags().StringVar(&userIDFlag, "user", "", "user id sent with each request for rate limiting")

	rootCmd.AddCommand(profileCmd)
}

// runChat starts the terminal UI. The terminal belongs to Bubble Tea, so logs
// go to a file next to the config.
func runChat(cfg *config.Config) error {
	logger, closer, err := logging.NewFile(cfg.LogPath(), logging.ParseLevel(cfg.Client.LogLevel))
	if err != nil {
		return err
	}
	defer closer.Close()

	endpoint, stop, err := resolveEndpoint(cfg, endpointFlag, logger)
	if err != nil {
		// Still open the UI; it explains how to configure a key.
		logger.Warn("chat endpoint unavailable", slog.Any("error", err))
		endpoint, stop = "", func() {}
	}
	defer stop()

	application := app.NewApplication(core.Options{
		Endpoint:       endpoint,
		UserID:         firstNonEmpty(userIDFlag, cfg.Client.UserID),
		RequestTimeout: cfg.Timeouts.Request(),
		Logger:         logger,
	})
	defer application.Stop()

	if err := application.Start(); err != nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
