package snapshot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"financia/internal/budget"
	"financia/internal/core"
)

// legacyState is the flat browser-store layout that predates schema
// versions. The monthly contribution lived in a category named "caixinha".
type legacyState struct {
	Salary                float64         `json:"salary"`
	EmergencyFundMonths   *float64        `json:"emergencyFundMonths"`
	AnnualInterestRate    *float64        `json:"annualInterestRate"`
	ProjectionMonths      *float64        `json:"projectionMonths"`
	AccumulatedInvestment float64         `json:"accumulatedInvestment"`
	Categories            []Category      `json:"categories"`
	Expenses              []legacyExpense `json:"expenses"`
	History               []legacyHistory `json:"history"`
}

type legacyExpense struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
}

type legacyHistory struct {
	ID            string          `json:"id"`
	Month         string          `json:"month"`
	Salary        float64         `json:"salary"`
	TotalBudgeted float64         `json:"totalBudgeted"`
	TotalExpenses float64         `json:"totalExpenses"`
	FreeBalance   float64         `json:"freeBalance"`
	Categories    []Category      `json:"categories"`
	Expenses      []legacyExpense `json:"expenses"`
	Date          string          `json:"date"`
}

func decodeLegacy(data []byte) (Document, error) {
	var ls legacyState
	if err := json.Unmarshal(data, &ls); err != nil {
		return Document{}, fmt.Errorf("%w: legacy: %v", ErrMalformed, err)
	}
	return migrateLegacy(ls), nil
}

// migrateLegacy lifts the caixinha category out of the live categories into
// the dedicated contribution field. Archived months keep their categories
// exactly as they were closed.
func migrateLegacy(ls legacyState) Document {
	def := budget.DefaultState()
	doc := Document{
		SchemaVersion:       SchemaVersion,
		Salary:              core.NonNegative(ls.Salary),
		EmergencyFundMonths: def.EmergencyFundMonths,
		Investment: Investment{
			AnnualInterestRate:    def.Investment.AnnualInterestRate,
			ProjectionMonths:      def.Investment.ProjectionMonths,
			AccumulatedInvestment: core.NonNegative(ls.AccumulatedInvestment),
		},
	}
	if ls.EmergencyFundMonths != nil {
		doc.EmergencyFundMonths = max(int(core.SanitizeAmount(*ls.EmergencyFundMonths)), 0)
	}
	if ls.AnnualInterestRate != nil {
		doc.Investment.AnnualInterestRate = core.ClampRate(*ls.AnnualInterestRate)
	}
	if ls.ProjectionMonths != nil {
		doc.Investment.ProjectionMonths = max(int(core.SanitizeAmount(*ls.ProjectionMonths)), 0)
	}

	cats := ls.Categories
	if cats == nil {
		cats = FromCategories(def.Categories)
	}
	contributionFound := false
	doc.Categories = make([]Category, 0, len(cats))
	for _, c := range cats {
		if core.IsInvestmentCategoryName(c.Name) {
			if !contributionFound {
				doc.Investment.MonthlyContribution = core.NonNegative(c.BudgetedAmount)
				contributionFound = true
			}
			continue
		}
		doc.Categories = append(doc.Categories, c)
	}

	doc.Expenses = legacyExpenses(ls.Expenses)
	doc.History = make([]HistoryEntry, 0, len(ls.History))
	for _, h := range ls.History {
		year, month := parseMonthLabel(h.Month)
		doc.History = append(doc.History, HistoryEntry{
			ID:            h.ID,
			Label:         h.Month,
			Year:          year,
			Month:         int(month),
			Salary:        h.Salary,
			TotalBudgeted: h.TotalBudgeted,
			TotalExpenses: h.TotalExpenses,
			FreeBalance:   h.FreeBalance,
			Categories:    h.Categories,
			Expenses:      legacyExpenses(h.Expenses),
			ClosedAt:      legacyDate(h.Date),
		})
	}
	return doc
}

func legacyExpenses(in []legacyExpense) []Expense {
	out := make([]Expense, 0, len(in))
	for _, e := range in {
		out = append(out, Expense{
			ID:          e.ID,
			Description: e.Description,
			Amount:      e.Amount,
			Date:        legacyDate(e.Date),
		})
	}
	return out
}

// legacyDate accepts a plain day or a full ISO timestamp and returns the
// local calendar day. Unparsable values become empty.
func legacyDate(s string) string {
	s = strings.TrimSpace(s)
	if d, err := core.ParseDate(s); err == nil {
		return d.String()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return core.DateOf(t.Local()).String()
	}
	return ""
}

// parseMonthLabel reads labels such as "outubro de 2026". Unknown labels
// yield zero values.
func parseMonthLabel(label string) (int, time.Month) {
	fields := strings.Fields(strings.ToLower(label))
	if len(fields) != 3 || fields[1] != "de" {
		return 0, 0
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, 0
	}
	for m := time.January; m <= time.December; m++ {
		if core.MonthName(m) == fields[0] {
			return year, m
		}
	}
	return 0, 0
}
