package cmd

import (
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/filiksyos/linkedin-search-app/internal/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage model and search credentials",
	Long:  `Manage model provider profiles and the LinkedIn search key.`,
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		fmt.Printf("Active Profile: %s\n\n", cfg.ActiveProfile)
		fmt.Println("Available Profiles:")
		for _, name := range cfg.ProfileNames() {
			marker := ""
			if name == cfg.ActiveProfile {
				marker = " (active)"
			}
			fmt.Printf("  %s%s\n", name, marker)
			printProfile("    ", cfg.Profiles[name])
			fmt.Println()
		}
		fmt.Printf("Search API Key: %s\n", yesNo(cfg.GetSearchAPIKey() != ""))
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		profile, exists := cfg.Profiles[args[0]]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", args[0])
		}

		fmt.Printf("Profile: %s\n", args[0])
		printProfile("", profile)
	},
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			profileName = runPrompt(promptui.Prompt{Label: "Profile name"})
		}

		if _, exists := cfg.Profiles[profileName]; exists {
			log.Fatalf("Profile '%s' already exists", profileName)
		}

		profile := editProfile(config.Profile{Model: config.DefaultModel})
		cfg.Profiles[profileName] = profile

		if len(cfg.Profiles) == 1 || cfg.GetAPIKey() == "" {
			if err := cfg.Use(profileName); err != nil {
				log.Fatalf("Failed to activate profile: %v", err)
			}
		}
		mustSave(cfg)

		fmt.Printf("Profile '%s' added successfully!\n", profileName)
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [profile-name]",
	Short: "Edit an existing profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		profileName := pickProfile(cfg, args, "Select profile to edit", "")
		profile, exists := cfg.Profiles[profileName]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		cfg.Profiles[profileName] = editProfile(profile)
		if profileName == cfg.ActiveProfile {
			// Refresh the cached active profile.
			_ = cfg.Use(profileName)
		}
		mustSave(cfg)

		fmt.Printf("Profile '%s' updated successfully!\n", profileName)
	},
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete [profile-name]",
	Short: "Delete a profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		profileName := pickProfile(cfg, args, "Select profile to delete", "")
		if _, exists := cfg.Profiles[profileName]; !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		confirmPrompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete profile '%s'? (y/N)", profileName),
			IsConfirm: true,
		}
		if _, err := confirmPrompt.Run(); err != nil {
			fmt.Println("Deletion cancelled")
			return
		}

		delete(cfg.Profiles, profileName)
		if len(cfg.Profiles) == 0 {
			cfg.Profiles[config.DefaultProfile] = config.Profile{Model: config.DefaultModel}
		}
		if cfg.ActiveProfile == profileName {
			if err := cfg.Use(cfg.ProfileNames()[0]); err != nil {
				log.Fatalf("Failed to activate profile: %v", err)
			}
		}
		mustSave(cfg)

		fmt.Printf("Profile '%s' deleted successfully!\n", profileName)
	},
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		if len(args) == 0 && len(cfg.Profiles) < 2 {
			fmt.Println("No other profiles available to switch to")
			return
		}
		profileName := pickProfile(cfg, args, "Select profile to switch to", cfg.ActiveProfile)

		if err := cfg.Use(profileName); err != nil {
			log.Fatalf("Failed to switch profile: %v", err)
		}
		mustSave(cfg)

		fmt.Printf("Switched to profile '%s'\n", profileName)
	},
}

var searchKeyCmd = &cobra.Command{
	Use:   "search-key",
	Short: "Set the Exa API key used for LinkedIn searches",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		cfg.Search.APIKey = runPrompt(promptui.Prompt{
			Label:   "Exa API Key",
			Default: cfg.Search.APIKey,
			Mask:    '*',
		})
		mustSave(cfg)

		fmt.Println("Search API key saved")
	},
}

func mustLoadConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func mustSave(cfg *config.Config) {
	if err := cfg.Save(); err != nil {
		log.Fatalf("Failed to save config: %v", err)
	}
}

func runPrompt(p promptui.Prompt) string {
	value, err := p.Run()
	if err != nil {
		log.Fatalf("Prompt failed: %v", err)
	}
	return value
}

// pickProfile returns the named argument or asks the user to choose one,
// leaving out exclude.
func pickProfile(cfg *config.Config, args []string, label, exclude string) string {
	if len(args) > 0 {
		return args[0]
	}

	names := make([]string, 0, len(cfg.Profiles))
	for _, name := range cfg.ProfileNames() {
		if name != exclude {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		log.Fatalf("No profiles available")
	}

	prompt := promptui.Select{
		Label: label,
		Items: names,
	}
	_, name, err := prompt.Run()
	if err != nil {
		log.Fatalf("Selection failed: %v", err)
	}
	return name
}

func editProfile(profile config.Profile) config.Profile {
	profile.APIKey = runPrompt(promptui.Prompt{
		Label:   "OpenRouter API Key",
		Default: profile.APIKey,
		Mask:    '*',
	})
	profile.Model = runPrompt(promptui.Prompt{
		Label:   "Model",
		Default: profile.Model,
	})
	profile.BaseURL = runPrompt(promptui.Prompt{
		Label:   "Base URL (empty for OpenRouter)",
		Default: profile.BaseURL,
	})
	return profile
}

func printProfile(indent string, profile config.Profile) {
	fmt.Printf("%sModel: %s\n", indent, profile.Model)
	if profile.BaseURL != "" {
		fmt.Printf("%sBase URL: %s\n", indent, profile.BaseURL)
	}
	fmt.Printf("%sAPI Key: %s\n", indent, yesNo(profile.APIKey != ""))
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func init() {
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
	profileCmd.AddCommand(deleteProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
	profileCmd.AddCommand(searchKeyCmd)
}
