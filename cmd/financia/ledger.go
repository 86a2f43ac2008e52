package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"financia/internal/cli"
	"financia/internal/core"
)

func parseAmountArg(raw string) (float64, error) {
	v, err := core.ParseAmount(raw)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", raw, err)
	}
	return v, nil
}

func salaryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "salary",
		Short: "Manage the monthly salary",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <amount>",
		Short: "Set the monthly salary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmountArg(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(app *cli.App) error {
				app.Store.SetSalary(amount)
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Salário: ")+core.FormatBRL(app.Store.State().Salary))
				return nil
			})
		},
	})
	return cmd
}

func settingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage budget settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "emergency-months <n>",
		Short: "Set how many months of budget the emergency fund covers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("months %q: %w", args[0], err)
			}
			return withApp(cmd, opts, func(app *cli.App) error {
				app.Store.SetEmergencyFundMonths(n)
				st := app.Store.State()
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d meses (%s)\n",
					successStyle.Render("Reserva de emergência:"), st.EmergencyFundMonths, core.FormatBRL(st.EmergencyFundGoal()))
				return nil
			})
		},
	})
	return cmd
}

func categoryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Manage budget categories",
	}
	cmd.AddCommand(
		listCategoriesCmd(opts),
		addCategoryCmd(opts),
		budgetCategoryCmd(opts),
		removeCategoryCmd(opts),
	)
	return cmd
}

func listCategoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories with their share of the salary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *cli.App) error {
				shares := app.Store.State().Shares()
				if len(shares) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No categories. Use 'financia category add' to create one."))
					return nil
				}
				t := newTable(cmd.OutOrStdout(), "ID", "Categoria", "Orçado", "% salário")
				for _, sh := range shares {
					t.row(sh.Category.ID, sh.Category.Icon+" "+sh.Category.Name,
						core.FormatBRL(sh.Category.BudgetedAmount), percent(sh.Share))
				}
				return t.flush()
			})
		},
	}
}

func addCategoryCmd(opts *rootOptions) *cobra.Command {
	var icon string
	cmd := &cobra.Command{
		Use:   "add <name> [amount]",
		Short: "Add a category",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount := 0.0
			if len(args) == 2 {
				v, err := parseAmountArg(args[1])
				if err != nil {
					return err
				}
				amount = v
			}
			return withApp(cmd, opts, func(app *cli.App) error {
				c, err := app.Store.AddCategory(args[0], icon, amount)
				if err != nil {
					return fmt.Errorf("add category: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (%s) id=%s\n",
					successStyle.Render("Categoria criada:"), c.Icon, c.Name, core.FormatBRL(c.BudgetedAmount), c.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&icon, "icon", "", "emoji shown next to the name")
	return cmd
}

func budgetCategoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "budget <id> <amount>",
		Short: "Change a category's budgeted amount",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmountArg(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(app *cli.App) error {
				if !app.Store.UpdateBudget(args[0], amount) {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Nothing changed for category "+args[0]+"."))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Orçamento atualizado."))
				return nil
			})
		},
	}
}

func removeCategoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove a category",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(app *cli.App) error {
				if !app.Store.RemoveCategory(args[0]) {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No category "+args[0]+"."))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Categoria removida."))
				return nil
			})
		},
	}
}
