// Package budget holds the live budget state and the operations on it:
// the category ledger, the expense log, the investment settings and the
// month-close that archives a period into history.
package budget

import (
	"time"

	"financia/internal/core"
	"financia/internal/projection"
)

const (
	DefaultEmergencyFundMonths = 6
	DefaultAnnualInterestRate  = 12.0
	DefaultProjectionMonths    = 12

	MaxProjectionMonths = projection.MaxMonths
)

// State is a full copy of the budget at one revision.
type State struct {
	Revision            uint64
	Salary              float64
	EmergencyFundMonths int
	Categories          []core.Category
	Expenses            []core.Expense      // most recent first
	History             []core.HistoryEntry // most recent first
	Investment          core.InvestmentParams
}

// DefaultState is the state of a user who never saved anything.
func DefaultState() State {
	return State{
		EmergencyFundMonths: DefaultEmergencyFundMonths,
		Categories: []core.Category{
			{ID: "1", Name: "Aluguel", Icon: "🏠", Color: "bg-blue-500"},
			{ID: "2", Name: "Alimentação", Icon: "🛒", Color: "bg-orange-500"},
		},
		Investment: core.InvestmentParams{
			AnnualInterestRate: DefaultAnnualInterestRate,
			ProjectionMonths:   DefaultProjectionMonths,
		},
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Categories = core.CloneCategories(s.Categories)
	out.Expenses = core.CloneExpenses(s.Expenses)
	out.History = core.CloneHistory(s.History)
	return out
}

// CategoriesTotal is the sum of all category budgets, contribution excluded.
func (s State) CategoriesTotal() float64 {
	var sum float64
	for _, c := range s.Categories {
		sum += c.BudgetedAmount
	}
	return sum
}

// TotalBudgeted is every category budget plus the monthly contribution.
func (s State) TotalBudgeted() float64 {
	return s.CategoriesTotal() + s.Investment.MonthlyContribution
}

// RemainingAfterBudget may be negative when the plan exceeds the salary.
func (s State) RemainingAfterBudget() float64 {
	return s.Salary - s.TotalBudgeted()
}

func (s State) TotalExpenses() float64 {
	var sum float64
	for _, e := range s.Expenses {
		sum += e.Amount
	}
	return sum
}

// FreeBalance is what is left after the plan and the variable expenses.
func (s State) FreeBalance() float64 {
	return s.RemainingAfterBudget() - s.TotalExpenses()
}

// EmergencyFundGoal is the monthly cost of living times the reserve months.
// The investment contribution is not a cost of living and is left out.
func (s State) EmergencyFundGoal() float64 {
	return s.CategoriesTotal() * float64(s.EmergencyFundMonths)
}

// CommitmentRatio is TotalBudgeted / Salary, 0 when there is no salary.
func (s State) CommitmentRatio() float64 {
	return core.Ratio(s.TotalBudgeted(), s.Salary)
}

// Summarize computes every derived figure at once.
func (s State) Summarize() core.Summary {
	return core.Summary{
		Salary:               s.Salary,
		TotalBudgeted:        s.TotalBudgeted(),
		RemainingAfterBudget: s.RemainingAfterBudget(),
		TotalExpenses:        s.TotalExpenses(),
		FreeBalance:          s.FreeBalance(),
		EmergencyFundGoal:    s.EmergencyFundGoal(),
		CommitmentRatio:      s.CommitmentRatio(),
		MonthlyContribution:  s.Investment.MonthlyContribution,
	}
}

// Shares returns each category with its fraction of the salary.
func (s State) Shares() []core.CategoryShare {
	out := make([]core.CategoryShare, 0, len(s.Categories))
	for _, c := range s.Categories {
		out = append(out, core.CategoryShare{Category: c, Share: core.Ratio(c.BudgetedAmount, s.Salary)})
	}
	return out
}

// ProjectionParams maps the investment settings onto projector inputs.
func (s State) ProjectionParams() projection.Params {
	return projection.Params{
		Accumulated:       s.Investment.AccumulatedInvestment,
		Contribution:      s.Investment.MonthlyContribution,
		AnnualRatePercent: s.Investment.AnnualInterestRate,
		Months:            s.Investment.ProjectionMonths,
	}
}

// ExpensesInMonth returns the live expenses dated in the given month.
func (s State) ExpensesInMonth(year int, month time.Month) []core.Expense {
	var out []core.Expense
	for _, e := range s.Expenses {
		if e.Date.Year() == year && e.Date.Month() == month {
			out = append(out, e)
		}
	}
	return out
}

func (s State) findCategory(id string) int {
	for i, c := range s.Categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s State) findExpense(id string) int {
	for i, e := range s.Expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s State) findHistory(id string) int {
	for i, h := range s.History {
		if h.ID == id {
			return i
		}
	}
	return -1
}
