package cli

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

var fetchJSON bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Fetch an article and print its segments",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print the document as JSON")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	notice, err := a.Session.Fetch(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	state := a.Session.Snapshot()

	if fetchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	cmd.Println(notice.Message)
	for i, segment := range state.Segments {
		cmd.Println()
		cmd.Printf("--- Segment %d of %d (%d characters) ---\n", i+1, state.Total, utf8.RuneCountInString(segment))
		cmd.Println(segment)
	}
	return nil
}
