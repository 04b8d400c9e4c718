package cli

import (
	"github.com/spf13/cobra"

	"github.com/csheth/repost/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Long: `Serve the document workflow over HTTP so a browser front end can drive
fetching, generation and publishing. The server holds a single session.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := serveAddr
	if addr == "" {
		addr = a.Config.Server.Addr
	}
	srv := httpapi.NewServer(addr, httpapi.Deps{
		Session:     a.Session,
		Settings:    a.Settings,
		CORSOrigins: a.Config.Server.CORSOrigins,
		Logger:      a.Log,
	})
	return srv.ListenAndServe(cmd.Context())
}
