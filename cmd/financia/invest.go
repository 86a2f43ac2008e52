package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"financia/internal/cli"
	"financia/internal/core"
)

func investCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invest",
		Short: "Manage investment settings",
	}

	var (
		rate         string
		months       int
		accumulated  string
		contribution string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change investment settings; omitted flags keep their value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			type change struct {
				flag string
				raw  string
				set  func(*core.InvestmentParams, float64)
			}
			var parsed []func(*core.InvestmentParams)
			for _, c := range []change{
				{"rate", rate, func(p *core.InvestmentParams, v float64) { p.AnnualInterestRate = v }},
				{"accumulated", accumulated, func(p *core.InvestmentParams, v float64) { p.AccumulatedInvestment = v }},
				{"contribution", contribution, func(p *core.InvestmentParams, v float64) { p.MonthlyContribution = v }},
			} {
				if !cmd.Flags().Changed(c.flag) {
					continue
				}
				v, err := parseAmountArg(c.raw)
				if err != nil {
					return fmt.Errorf("--%s: %w", c.flag, err)
				}
				parsed = append(parsed, func(p *core.InvestmentParams) { c.set(p, v) })
			}
			monthsChanged := cmd.Flags().Changed("months")

			return withApp(cmd, opts, func(app *cli.App) error {
				got := app.Store.UpdateInvestment(func(p *core.InvestmentParams) {
					if monthsChanged {
						p.ProjectionMonths = months
					}
					for _, apply := range parsed {
						apply(p)
					}
				})

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, titleStyle.Render("Investimentos"))
				t := newTable(out, "Item", "Valor")
				t.row("Taxa anual", fmt.Sprintf("%.2f%%", got.AnnualInterestRate))
				t.row("Horizonte", fmt.Sprintf("%d meses", got.ProjectionMonths))
				t.row("Acumulado", core.FormatBRL(got.AccumulatedInvestment))
				t.row("Aporte mensal", core.FormatBRL(got.MonthlyContribution))
				return t.flush()
			})
		},
	}
	set.Flags().StringVar(&rate, "rate", "", "annual interest rate in percent, e.g. 12 or 10,5")
	set.Flags().IntVar(&months, "months", 0, "projection horizon in months")
	set.Flags().StringVar(&accumulated, "accumulated", "", "amount already invested")
	set.Flags().StringVar(&contribution, "contribution", "", "monthly contribution")

	cmd.AddCommand(set)
	return cmd
}
