// Package cli implements the repost command line.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/csheth/repost/internal/app"
)

var (
	// globalOpts receives the persistent flags.
	globalOpts app.Options

	// newApp builds the runtime components. Tests replace it.
	newApp = app.New
)

var rootCmd = &cobra.Command{
	Use:   "repost",
	Short: "Turn long reads into Telegram posts",
	Long: `Repost fetches an article, splits it into segments and turns each
segment into a short caption with a generated illustration, ready to
publish to a Telegram channel.

Run without a subcommand to open the interactive terminal UI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalOpts.ConfigPath, "config", "", "config file (default is the user config dir)")
	pf.StringVar(&globalOpts.SettingsPath, "settings", "", "credentials file (overrides settings_path)")
	pf.StringVar(&globalOpts.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().BoolVar(&noAltScreen, "no-alt-screen", false, "disable the alternate screen buffer")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// buildApp applies opts on top of the persistent flags.
func buildApp(terminal bool) (*app.App, error) {
	opts := globalOpts
	opts.Terminal = terminal
	return newApp(opts)
}
