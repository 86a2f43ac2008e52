package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"financia/internal/cli"
	"financia/internal/core"
)

func closeMonthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close-month",
		Short: "Archive the current month and clear its expenses",
		Long: `Freeze salary, totals, free balance, contribution, categories and expenses
into the history, then empty the expense log. Categories, salary and
investment settings carry over.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *cli.App) error {
				h := app.Store.CloseMonth()
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: saldo livre %s, %d gastos (id=%s)\n",
					successStyle.Render("Mês fechado:"), h.Label, core.FormatBRL(h.FreeBalance), len(h.Expenses), h.ID)
				return nil
			})
		},
	}
}

func historyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse closed months",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List closed months, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *cli.App) error {
				history := app.Store.History()
				if len(history) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No closed months yet."))
					return nil
				}
				t := newTable(cmd.OutOrStdout(), "ID", "Mês", "Salário", "Orçado", "Gastos", "Saldo livre", "Aporte")
				for _, h := range history {
					t.row(h.ID, h.Label, core.FormatBRL(h.Salary), core.FormatBRL(h.TotalBudgeted),
						core.FormatBRL(h.TotalExpenses), core.FormatBRL(h.FreeBalance), core.FormatBRL(h.MonthlyContribution))
				}
				return t.flush()
			})
		},
	}

	rm := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a closed month",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(app *cli.App) error {
				if !app.Store.RemoveHistoryItem(args[0]) {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No closed month "+args[0]+"."))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Mês removido do histórico."))
				return nil
			})
		},
	}

	cmd.AddCommand(list, rm)
	return cmd
}
