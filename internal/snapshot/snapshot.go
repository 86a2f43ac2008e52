// Package snapshot defines the persisted form of a budget state and the
// migration of older payloads into it.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"financia/internal/budget"
	"financia/internal/core"
)

// SchemaVersion is the version written by Encode.
const SchemaVersion = 2

var (
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	ErrMalformed          = errors.New("malformed snapshot")
	ErrDuplicateID        = errors.New("duplicate id")
)

type (
	Document struct {
		SchemaVersion       int            `json:"schemaVersion"`
		Revision            uint64         `json:"revision"`
		Salary              float64        `json:"salary"`
		EmergencyFundMonths int            `json:"emergencyFundMonths"`
		Categories          []Category     `json:"categories"`
		Expenses            []Expense      `json:"expenses"`
		History             []HistoryEntry `json:"history"`
		Investment          Investment     `json:"investment"`
		LastUpdated         time.Time      `json:"lastUpdated"`
	}

	Category struct {
		ID             string  `json:"id"`
		Name           string  `json:"name"`
		Icon           string  `json:"icon"`
		BudgetedAmount float64 `json:"budgetedAmount"`
		Color          string  `json:"color"`
	}

	Expense struct {
		ID          string  `json:"id"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		Date        string  `json:"date"` // YYYY-MM-DD
	}

	HistoryEntry struct {
		ID                  string     `json:"id"`
		Label               string     `json:"label"`
		Year                int        `json:"year"`
		Month               int        `json:"month"`
		Salary              float64    `json:"salary"`
		TotalBudgeted       float64    `json:"totalBudgeted"`
		TotalExpenses       float64    `json:"totalExpenses"`
		FreeBalance         float64    `json:"freeBalance"`
		MonthlyContribution float64    `json:"monthlyContribution"`
		Categories          []Category `json:"categories"`
		Expenses            []Expense  `json:"expenses"`
		ClosedAt            string     `json:"closedAt"`
	}

	Investment struct {
		AnnualInterestRate    float64 `json:"annualInterestRate"`
		ProjectionMonths      int     `json:"projectionMonths"`
		AccumulatedInvestment float64 `json:"accumulatedInvestment"`
		MonthlyContribution   float64 `json:"monthlyContribution"`
	}
)

// FromState converts a live state into its persisted form.
func FromState(st budget.State, now time.Time) Document {
	doc := Document{
		SchemaVersion:       SchemaVersion,
		Revision:            st.Revision,
		Salary:              st.Salary,
		EmergencyFundMonths: st.EmergencyFundMonths,
		Categories:          FromCategories(st.Categories),
		Expenses:            FromExpenses(st.Expenses),
		History:             make([]HistoryEntry, 0, len(st.History)),
		Investment: Investment{
			AnnualInterestRate:    st.Investment.AnnualInterestRate,
			ProjectionMonths:      st.Investment.ProjectionMonths,
			AccumulatedInvestment: st.Investment.AccumulatedInvestment,
			MonthlyContribution:   st.Investment.MonthlyContribution,
		},
		LastUpdated: now.UTC(),
	}
	for _, h := range st.History {
		doc.History = append(doc.History, FromHistoryEntry(h))
	}
	return doc
}

// ToState converts a document back into a live state. Amounts are clamped
// like the store's setters. Category, expense and history ids must each be
// unique or ErrDuplicateID is returned.
func (d Document) ToState() (budget.State, error) {
	if err := checkUniqueIDs(d); err != nil {
		return budget.State{}, err
	}
	st := budget.State{
		Revision:            d.Revision,
		Salary:              core.NonNegative(d.Salary),
		EmergencyFundMonths: max(d.EmergencyFundMonths, 0),
		Categories:          toCategories(d.Categories),
		Investment: core.InvestmentParams{
			AnnualInterestRate:    core.ClampRate(d.Investment.AnnualInterestRate),
			ProjectionMonths:      min(max(d.Investment.ProjectionMonths, 0), budget.MaxProjectionMonths),
			AccumulatedInvestment: core.NonNegative(d.Investment.AccumulatedInvestment),
			MonthlyContribution:   core.NonNegative(d.Investment.MonthlyContribution),
		},
	}
	ex, err := toExpenses(d.Expenses)
	if err != nil {
		return budget.State{}, err
	}
	st.Expenses = ex

	for _, h := range d.History {
		entry, err := h.ToEntry()
		if err != nil {
			return budget.State{}, err
		}
		st.History = append(st.History, entry)
	}
	return st, nil
}

// FromHistoryEntry converts one archived month into its persisted form.
func FromHistoryEntry(h core.HistoryEntry) HistoryEntry {
	return HistoryEntry{
		ID:                  h.ID,
		Label:               h.Label,
		Year:                h.Year,
		Month:               int(h.Month),
		Salary:              h.Salary,
		TotalBudgeted:       h.TotalBudgeted,
		TotalExpenses:       h.TotalExpenses,
		FreeBalance:         h.FreeBalance,
		MonthlyContribution: h.MonthlyContribution,
		Categories:          FromCategories(h.Categories),
		Expenses:            FromExpenses(h.Expenses),
		ClosedAt:            h.ClosedAt.String(),
	}
}

// ToEntry converts one persisted history entry.
func (h HistoryEntry) ToEntry() (core.HistoryEntry, error) {
	closed, err := parseOptionalDate(h.ClosedAt)
	if err != nil {
		return core.HistoryEntry{}, fmt.Errorf("history %s: %w", h.ID, err)
	}
	hx, err := toExpenses(h.Expenses)
	if err != nil {
		return core.HistoryEntry{}, fmt.Errorf("history %s: %w", h.ID, err)
	}
	return core.HistoryEntry{
		ID:                  h.ID,
		Label:               h.Label,
		Year:                h.Year,
		Month:               time.Month(h.Month),
		Salary:              core.NonNegative(h.Salary),
		TotalBudgeted:       core.ClampAmount(h.TotalBudgeted),
		TotalExpenses:       core.ClampAmount(h.TotalExpenses),
		FreeBalance:         core.ClampAmount(h.FreeBalance),
		MonthlyContribution: core.NonNegative(h.MonthlyContribution),
		Categories:          toCategories(h.Categories),
		Expenses:            hx,
		ClosedAt:            closed,
	}, nil
}

// Encode serializes doc as JSON, stamping the current schema version.
func Encode(doc Document) ([]byte, error) {
	doc.SchemaVersion = SchemaVersion
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// Decode parses a payload of any known version and returns it as a
// current-version document. Legacy payloads are migrated on the way.
func Decode(data []byte) (Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Document{}, ErrMalformed
	}

	var probe struct {
		SchemaVersion *int            `json:"schemaVersion"`
		State         json.RawMessage `json:"state"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch {
	case probe.SchemaVersion == nil:
		if len(probe.State) > 0 && probe.State[0] == '{' {
			return decodeLegacy(probe.State)
		}
		return decodeLegacy(data)
	case *probe.SchemaVersion == SchemaVersion:
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return doc, nil
	case *probe.SchemaVersion == 1:
		return decodeLegacy(data)
	default:
		return Document{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, *probe.SchemaVersion)
	}
}

// DecodeState is Decode followed by ToState.
func DecodeState(data []byte) (budget.State, error) {
	doc, err := Decode(data)
	if err != nil {
		return budget.State{}, err
	}
	return doc.ToState()
}

// FromCategories converts categories; the result is never nil.
func FromCategories(in []core.Category) []Category {
	out := make([]Category, 0, len(in))
	for _, c := range in {
		out = append(out, Category{
			ID:             c.ID,
			Name:           c.Name,
			Icon:           c.Icon,
			BudgetedAmount: c.BudgetedAmount,
			Color:          c.Color,
		})
	}
	return out
}

// FromExpenses converts expenses; the result is never nil.
func FromExpenses(in []core.Expense) []Expense {
	out := make([]Expense, 0, len(in))
	for _, e := range in {
		out = append(out, Expense{
			ID:          e.ID,
			Description: e.Description,
			Amount:      e.Amount,
			Date:        e.Date.String(),
		})
	}
	return out
}

func toCategories(in []Category) []core.Category {
	var out []core.Category
	for _, c := range in {
		out = append(out, core.Category{
			ID:             c.ID,
			Name:           c.Name,
			Icon:           c.Icon,
			BudgetedAmount: core.NonNegative(c.BudgetedAmount),
			Color:          c.Color,
		})
	}
	return out
}

func toExpenses(in []Expense) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range in {
		d, err := parseOptionalDate(e.Date)
		if err != nil {
			return nil, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		out = append(out, core.Expense{
			ID:          e.ID,
			Description: e.Description,
			Amount:      core.ClampAmount(e.Amount),
			Date:        d,
		})
	}
	return out, nil
}

func checkUniqueIDs(d Document) error {
	if err := uniqueIDs("category", d.Categories, func(c Category) string { return c.ID }); err != nil {
		return err
	}
	if err := uniqueIDs("expense", d.Expenses, func(e Expense) string { return e.ID }); err != nil {
		return err
	}
	return uniqueIDs("history", d.History, func(h HistoryEntry) string { return h.ID })
}

func uniqueIDs[T any](kind string, items []T, id func(T) string) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		k := id(it)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: %s %q", ErrDuplicateID, kind, k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

func parseOptionalDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}
