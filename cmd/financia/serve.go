package main

import (
	"github.com/spf13/cobra"

	"financia/internal/cli"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the budget over the JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == "" {
				port = opts.cfg.Port
			}
			return withApp(cmd, opts, func(app *cli.App) error {
				return app.Serve(cmd.Context(), ":"+port)
			})
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default: $PORT)")
	return cmd
}
