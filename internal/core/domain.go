package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCategoryIcon  = "📦"
	DefaultCategoryColor = "bg-emerald-500"

	// MaxDescriptionLength bounds expense descriptions and category names.
	MaxDescriptionLength = 200
)

type (
	// Date is a calendar day. The time part is always midnight in the
	// location the day was taken from.
	Date struct {
		time.Time
	}

	// Category is a named budget bucket.
	Category struct {
		ID             string
		Name           string
		Icon           string
		BudgetedAmount float64
		Color          string // presentation only
	}

	// Expense is one variable spending entry.
	Expense struct {
		ID          string
		Description string
		Amount      float64
		Date        Date
	}

	// InvestmentParams are the projector inputs. They survive month-close.
	InvestmentParams struct {
		AnnualInterestRate    float64 // percent per year, 12.0 means 12%
		ProjectionMonths      int
		AccumulatedInvestment float64
		MonthlyContribution   float64
	}

	// HistoryEntry is the frozen result of closing a month.
	HistoryEntry struct {
		ID                  string
		Label               string // e.g. "outubro de 2026"
		Year                int
		Month               time.Month
		Salary              float64
		TotalBudgeted       float64
		TotalExpenses       float64
		FreeBalance         float64
		MonthlyContribution float64
		Categories          []Category
		Expenses            []Expense
		ClosedAt            Date
	}
)

var (
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrTooLong          = errors.New("text too long (max 200 characters)")
	ErrInvalidDate      = errors.New("invalid date")

	// ErrStaleRevision is returned by backends when a save carries an older
	// revision than the stored one.
	ErrStaleRevision = errors.New("stale revision")
)

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// NewDate creates a Date from year, month, day in the local time zone.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)}
}

// DateOf truncates t to its calendar day, keeping t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

// ParseDate parses a YYYY-MM-DD string as a local calendar day.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.Local)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MonthName returns the Portuguese name of m, lower case.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// MonthLabel renders "outubro de 2026".
func MonthLabel(year int, m time.Month) string {
	return MonthName(m) + " de " + strconv.Itoa(year)
}

// ValidateName checks a category name before it reaches the ledger.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxDescriptionLength {
		return ErrTooLong
	}
	return nil
}

// ValidateExpense checks description and amount of a new expense.
func ValidateExpense(description string, amount float64) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return ErrEmptyDescription
	}
	if len(description) > MaxDescriptionLength {
		return ErrTooLong
	}
	if !IsFinite(amount) || math.Abs(amount) > MaxAmount {
		return ErrInvalidAmount
	}
	return nil
}

// IsInvestmentCategoryName reports whether name follows the legacy "caixinha"
// convention for the savings bucket. Only the snapshot migration uses it.
func IsInvestmentCategoryName(name string) bool {
	return strings.Contains(strings.ToLower(name), "caixinha")
}

// Clone returns a deep copy of the entry.
func (h HistoryEntry) Clone() HistoryEntry {
	out := h
	out.Categories = CloneCategories(h.Categories)
	out.Expenses = CloneExpenses(h.Expenses)
	return out
}

func CloneCategories(in []Category) []Category {
	if in == nil {
		return nil
	}
	out := make([]Category, len(in))
	copy(out, in)
	return out
}

func CloneExpenses(in []Expense) []Expense {
	if in == nil {
		return nil
	}
	out := make([]Expense, len(in))
	copy(out, in)
	return out
}

func CloneHistory(in []HistoryEntry) []HistoryEntry {
	if in == nil {
		return nil
	}
	out := make([]HistoryEntry, len(in))
	for i, h := range in {
		out[i] = h.Clone()
	}
	return out
}
