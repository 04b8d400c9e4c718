package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/csheth/repost/internal/config"
	"github.com/csheth/repost/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage stored credentials",
	Long: `View and change the OpenRouter API key, Telegram bot token and
channel ID used by every command.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored credentials, masked",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Store a credential",
	Long: `Store a credential. Fields:
  openRouterKey     - OpenRouter API key
  telegramBotToken  - Telegram bot token
  channelId         - Telegram channel (@name or numeric ID)

Pass an empty value to clear a field.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func openSettings() (*settings.Store, error) {
	path := strings.TrimSpace(globalOpts.SettingsPath)
	if path == "" {
		cfg, err := config.Load(globalOpts.ConfigPath)
		if err != nil {
			return nil, err
		}
		path = cfg.SettingsPath
	}
	return settings.Open(path)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}
	values := store.Get().Masked()

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("  File: %s\n", store.Path())
	cmd.Printf("  OpenRouter key: %s\n", orNotSet(values.OpenRouterKey))
	cmd.Printf("  Telegram bot token: %s\n", orNotSet(values.TelegramBotToken))
	cmd.Printf("  Channel ID: %s\n", orNotSet(values.ChannelID))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}
	field, err := settings.CanonicalField(args[0])
	if err != nil {
		if errors.Is(err, settings.ErrUnknownField) {
			return fmt.Errorf("%w (use openRouterKey, telegramBotToken or channelId)", err)
		}
		return err
	}
	if err := store.Set(field, args[1]); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Saved %s to %s\n", field, store.Path())
	return nil
}

func orNotSet(value string) string {
	if value == "" {
		return "(not set)"
	}
	return value
}
