package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/filiksyos/linkedin-search-app/internal/config"
	"github.com/filiksyos/linkedin-search-app/internal/core"
	"github.com/filiksyos/linkedin-search-app/internal/logging"
	"github.com/filiksyos/linkedin-search-app/ui/components"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask once and print the answer",
	Long:  `Send a single question, wait for the full reply and print it without the interactive UI.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if err := runAsk(cfg, strings.Join(args, " ")); err != nil {
			log.Fatalf("Ask failed: %v", err)
		}
	},
}

func runAsk(cfg *config.Config, question string) error {
	logger := logging.New(os.Stderr, logging.ParseLevel("warn"), false)

	endpoint, stop, err := resolveEndpoint(cfg, endpointFlag, logger)
	if err != nil {
		return err
	}
	defer stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	svc := core.NewChatService(core.Options{
		Endpoint:       endpoint,
		UserID:         firstNonEmpty(userIDFlag, cfg.Client.UserID),
		RequestTimeout: cfg.Timeouts.Request(),
		Logger:         logger,
	}, nil)
	defer svc.Stop()

	sendErr := svc.SendMessage(ctx, question, core.SendOptions{})
	snap := svc.State().Snapshot()

	// The question is already on the terminal; print only the reply.
	if len(snap.Messages) > 1 {
		fmt.Print(components.RenderMessages(snap.Messages[1:], components.RenderOptions{}))
	}
	if errors.Is(sendErr, context.Canceled) {
		return nil
	}
	if snap.ShowUpgrade {
		fmt.Fprintln(os.Stderr, "Usage limit reached. Wait a moment or upgrade your plan.")
	}
	return sendErr
}

func init() {
	rootCmd.AddCommand(askCmd)
}
