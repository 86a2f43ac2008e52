package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"financia/internal/cli"
	"financia/internal/core"
	"financia/internal/snapshot"
)

func importCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the budget with an exported or legacy JSON document",
		Long: `Read a budget document, migrating older formats (including the browser
store with a "caixinha" savings category), and save it as the user's
current budget.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			st, err := snapshot.DecodeState(data)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}

			return withApp(cmd, opts, func(app *cli.App) error {
				// The imported document replaces whatever is stored, so it
				// must carry a newer revision.
				st.Revision = app.Store.Revision() + 1
				doc := snapshot.FromState(st, time.Now())
				if err := app.Backend.SaveState(cmd.Context(), app.UserID, doc); err != nil {
					return fmt.Errorf("save imported budget: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d categorias, %d gastos, %d meses fechados, salário %s\n",
					successStyle.Render("Importado:"), len(st.Categories), len(st.Expenses), len(st.History), core.FormatBRL(st.Salary))
				return nil
			})
		},
	}
}
