package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"financia/internal/cli"
	"financia/internal/core"
)

func expenseCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expense",
		Aliases: []string{"expenses"},
		Short:   "Manage variable expenses of the current month",
	}
	cmd.AddCommand(listExpensesCmd(opts), addExpenseCmd(opts), removeExpenseCmd(opts))
	return cmd
}

func listExpensesCmd(opts *rootOptions) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *cli.App) error {
				st := app.Store.State()
				expenses := st.Expenses
				if month != "" {
					t, err := time.Parse("2006-01", month)
					if err != nil {
						return fmt.Errorf("--month %q: want YYYY-MM", month)
					}
					expenses = st.ExpensesInMonth(t.Year(), t.Month())
				}
				out := cmd.OutOrStdout()
				if len(expenses) == 0 {
					fmt.Fprintln(out, mutedStyle.Render("No expenses."))
					return nil
				}
				t := newTable(out, "ID", "Data", "Descrição", "Valor")
				total := 0.0
				for _, e := range expenses {
					t.row(e.ID, e.Date.String(), e.Description, core.FormatBRL(e.Amount))
					total += e.Amount
				}
				if err := t.flush(); err != nil {
					return err
				}
				fmt.Fprintln(out, mutedStyle.Render("Total: ")+core.FormatBRL(total))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "only expenses dated in this month (YYYY-MM)")
	return cmd
}

func addExpenseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <description> <amount>",
		Short: "Record an expense dated today",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmountArg(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(app *cli.App) error {
				e, err := app.Store.AddExpense(args[0], amount)
				if err != nil {
					return fmt.Errorf("add expense: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s id=%s\n",
					successStyle.Render("Gasto registrado:"), e.Description, core.FormatBRL(e.Amount), e.ID)
				return nil
			})
		},
	}
}

func removeExpenseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove an expense",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(app *cli.App) error {
				if !app.Store.RemoveExpense(args[0]) {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No expense "+args[0]+"."))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Gasto removido."))
				return nil
			})
		},
	}
}
