package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/csheth/repost/internal/tui"
)

var noAltScreen bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal UI.

Controls:
  Enter     - Fetch the article URL
  n/→, p/←  - Next / previous segment
  g         - Generate a post for the segment
  e         - Edit the caption
  s         - Publish to Telegram
  ,         - Settings
  ?         - Toggle help
  q/Esc     - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&noAltScreen, "no-alt-screen", false, "disable the alternate screen buffer")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	a, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []tea.ProgramOption{}
	if !noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(tui.New(tui.Config{
		Session:      a.Session,
		Settings:     a.Settings,
		ProviderName: a.LLM.Name(),
		CaptionLimit: a.Publisher.CaptionLimit(),
		Logger:       a.Log,
	}), opts...)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}
