package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"financia/internal/cli"
	"financia/internal/core"
	"financia/internal/projection"
)

func summaryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show salary, budget totals and free balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *cli.App) error {
				st := app.Store.State()
				s := st.Summarize()
				out := cmd.OutOrStdout()

				fmt.Fprintln(out, titleStyle.Render("Resumo de "+app.UserID))
				t := newTable(out, "Item", "Valor")
				t.row("Salário", core.FormatBRL(s.Salary))
				t.row("Orçado (com aporte)", core.FormatBRL(s.TotalBudgeted))
				t.row("Sobra do orçamento", core.FormatBRL(s.RemainingAfterBudget))
				t.row("Gastos variáveis", core.FormatBRL(s.TotalExpenses))
				t.row("Saldo livre", core.FormatBRL(s.FreeBalance))
				t.row("Aporte mensal", core.FormatBRL(s.MonthlyContribution))
				t.row("Reserva de emergência ("+strconv.Itoa(st.EmergencyFundMonths)+" meses)", core.FormatBRL(s.EmergencyFundGoal))
				t.row("Comprometimento", percent(s.CommitmentRatio))
				if err := t.flush(); err != nil {
					return err
				}
				if s.FreeBalance < 0 {
					fmt.Fprintln(out, warnStyle.Render("Atenção: o saldo livre está negativo."))
				}
				return nil
			})
		},
	}
}

func projectCmd(opts *rootOptions) *cobra.Command {
	var (
		months       int
		rate         string
		accumulated  string
		contribution string
	)

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project the investment balance month by month",
		Long: `Print the compound-interest schedule for the saved investment settings.
Flags override the saved values for this run only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *cli.App) error {
				p := app.Store.State().ProjectionParams()
				if cmd.Flags().Changed("months") {
					p.Months = months
				}
				for _, o := range []struct {
					flag string
					raw  string
					dst  *float64
				}{
					{"rate", rate, &p.AnnualRatePercent},
					{"accumulated", accumulated, &p.Accumulated},
					{"contribution", contribution, &p.Contribution},
				} {
					if !cmd.Flags().Changed(o.flag) {
						continue
					}
					v, err := core.ParseAmount(o.raw)
					if err != nil {
						return fmt.Errorf("--%s %q: %w", o.flag, o.raw, err)
					}
					*o.dst = v
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Projeção a %.2f%% a.a.", p.AnnualRatePercent)))
				t := newTable(out, "Mês", "Total", "Investido", "Rendimento", "Rend. mês")
				for s := range projection.Steps(p) {
					t.row(strconv.Itoa(s.Month), core.FormatBRL(s.Total), core.FormatBRL(s.Invested),
						core.FormatBRL(s.Profit), core.FormatBRL(s.MonthlyProfit))
				}
				if err := t.flush(); err != nil {
					return err
				}

				sum := projection.Summarize(p)
				fmt.Fprintf(out, "%s %s  %s %s  %s %s (%.2f%%)\n",
					mutedStyle.Render("Saldo final:"), core.FormatBRL(sum.FinalBalance),
					mutedStyle.Render("Investido:"), core.FormatBRL(sum.TotalInvested),
					mutedStyle.Render("Rendimento:"), core.FormatBRL(sum.TotalProfit), sum.ProfitPercent)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&months, "months", 0, "projection horizon in months")
	cmd.Flags().StringVar(&rate, "rate", "", "annual interest rate in percent")
	cmd.Flags().StringVar(&accumulated, "accumulated", "", "amount already invested")
	cmd.Flags().StringVar(&contribution, "contribution", "", "monthly contribution")
	return cmd
}
