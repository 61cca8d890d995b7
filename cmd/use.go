package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/filiksyos/linkedin-search-app/internal/config"
)

var useCmd = &cobra.Command{
	Use:   "use [profile-name]",
	Short: "Switch to a profile and start the chat app",
	Long:  `Switch to the specified profile and immediately start the chat application.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		if err := cfg.Use(args[0]); err != nil {
			log.Fatalf("Failed to switch profile: %v", err)
		}
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		if err := runChat(cfg); err != nil {
			log.Fatalf("Application error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(useCmd)
}
