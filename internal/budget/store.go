package budget

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"financia/internal/core"
)

// Observer is told about every committed change. It runs on the mutating
// goroutine after the store lock is released, so it must return quickly.
// The State it receives is a private copy.
type Observer interface {
	StateChanged(State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(State)

func (f ObserverFunc) StateChanged(s State) { f(s) }

// Store is the single owner of one user's budget state.
// Reads return deep copies; every mutation is atomic.
type Store struct {
	mu        sync.RWMutex
	state     State
	observers []Observer

	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithState seeds the store, typically with what a backend loaded.
func WithState(st State) Option {
	return func(s *Store) { s.state = st.Clone() }
}

// WithObserver registers o at construction time.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

// NewStore creates a store holding DefaultState unless WithState is given.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state: DefaultState(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// update applies fn under the write lock. When fn reports a change the
// revision is bumped and observers are notified once the lock is released.
func (s *Store) update(fn func(st *State) bool) bool {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return false
	}
	s.state.Revision++
	snap := s.state.Clone()
	observers := s.observers
	s.mu.Unlock()

	for _, o := range observers {
		o.StateChanged(snap)
	}
	return true
}

func (s *Store) read() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// State returns a deep copy of the current state.
func (s *Store) State() State { return s.read() }

func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Revision
}

func (s *Store) Categories() []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.CloneCategories(s.state.Categories)
}

func (s *Store) Expenses() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.CloneExpenses(s.state.Expenses)
}

func (s *Store) History() []core.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.CloneHistory(s.state.History)
}

func (s *Store) Investment() core.InvestmentParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Investment
}

// Summary recomputes the derived figures from the current state.
func (s *Store) Summary() core.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Summarize()
}

// SetSalary stores the monthly income. Negative or non-finite input becomes 0.
func (s *Store) SetSalary(amount float64) {
	amount = core.NonNegative(amount)
	s.update(func(st *State) bool {
		if st.Salary == amount {
			return false
		}
		st.Salary = amount
		return true
	})
}

// SetEmergencyFundMonths sets the reserve multiplier, never below 0.
func (s *Store) SetEmergencyFundMonths(months int) {
	months = max(months, 0)
	s.update(func(st *State) bool {
		if st.EmergencyFundMonths == months {
			return false
		}
		st.EmergencyFundMonths = months
		return true
	})
}

// SetAnnualInterestRate stores the yearly rate in percent, clamped with
// core.ClampRate. Negative rates down to -100% are kept.
func (s *Store) SetAnnualInterestRate(rate float64) {
	rate = core.ClampRate(rate)
	s.update(func(st *State) bool {
		if st.Investment.AnnualInterestRate == rate {
			return false
		}
		st.Investment.AnnualInterestRate = rate
		return true
	})
}

// SetProjectionMonths stores the horizon, clamped to [0, MaxProjectionMonths].
func (s *Store) SetProjectionMonths(months int) {
	months = clampMonths(months)
	s.update(func(st *State) bool {
		if st.Investment.ProjectionMonths == months {
			return false
		}
		st.Investment.ProjectionMonths = months
		return true
	})
}

func (s *Store) SetAccumulatedInvestment(amount float64) {
	amount = core.NonNegative(amount)
	s.update(func(st *State) bool {
		if st.Investment.AccumulatedInvestment == amount {
			return false
		}
		st.Investment.AccumulatedInvestment = amount
		return true
	})
}

func (s *Store) SetMonthlyContribution(amount float64) {
	amount = core.NonNegative(amount)
	s.update(func(st *State) bool {
		if st.Investment.MonthlyContribution == amount {
			return false
		}
		st.Investment.MonthlyContribution = amount
		return true
	})
}

// UpdateInvestment applies fn to the current settings under the write lock
// and commits the result in one revision. Concurrent partial updates never
// overwrite each other. The result is coerced like the single-field setters
// and returned.
func (s *Store) UpdateInvestment(fn func(*core.InvestmentParams)) core.InvestmentParams {
	var out core.InvestmentParams
	s.update(func(st *State) bool {
		p := st.Investment
		fn(&p)
		p = core.InvestmentParams{
			AnnualInterestRate:    core.ClampRate(p.AnnualInterestRate),
			ProjectionMonths:      clampMonths(p.ProjectionMonths),
			AccumulatedInvestment: core.NonNegative(p.AccumulatedInvestment),
			MonthlyContribution:   core.NonNegative(p.MonthlyContribution),
		}
		out = p
		if st.Investment == p {
			return false
		}
		st.Investment = p
		return true
	})
	return out
}

// AddCategory appends a category with a fresh id. An empty icon becomes
// the default one; the amount is coerced like UpdateBudget.
func (s *Store) AddCategory(name, icon string, amount float64) (core.Category, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateName(name); err != nil {
		return core.Category{}, err
	}
	icon = strings.TrimSpace(icon)
	if icon == "" {
		icon = core.DefaultCategoryIcon
	}
	c := core.Category{
		ID:             s.newID(),
		Name:           name,
		Icon:           icon,
		BudgetedAmount: core.NonNegative(amount),
		Color:          core.DefaultCategoryColor,
	}
	s.update(func(st *State) bool {
		st.Categories = append(st.Categories, c)
		return true
	})
	return c, nil
}

// UpdateBudget replaces the budgeted amount of a category. It reports
// whether the category exists; an unknown id changes nothing.
func (s *Store) UpdateBudget(id string, amount float64) bool {
	amount = core.NonNegative(amount)
	found := false
	s.update(func(st *State) bool {
		i := st.findCategory(id)
		if i < 0 {
			return false
		}
		found = true
		if st.Categories[i].BudgetedAmount == amount {
			return false
		}
		st.Categories[i].BudgetedAmount = amount
		return true
	})
	return found
}

// RemoveCategory deletes a category. It reports whether one was removed.
func (s *Store) RemoveCategory(id string) bool {
	return s.update(func(st *State) bool {
		i := st.findCategory(id)
		if i < 0 {
			return false
		}
		st.Categories = append(st.Categories[:i], st.Categories[i+1:]...)
		return true
	})
}

// AddExpense records an expense dated today and puts it first in the log.
func (s *Store) AddExpense(description string, amount float64) (core.Expense, error) {
	description = strings.TrimSpace(description)
	if err := core.ValidateExpense(description, amount); err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:          s.newID(),
		Description: description,
		Amount:      amount,
		Date:        core.DateOf(s.now()),
	}
	s.update(func(st *State) bool {
		st.Expenses = append([]core.Expense{e}, st.Expenses...)
		return true
	})
	return e, nil
}

// RemoveExpense deletes an expense. It reports whether one was removed.
func (s *Store) RemoveExpense(id string) bool {
	return s.update(func(st *State) bool {
		i := st.findExpense(id)
		if i < 0 {
			return false
		}
		st.Expenses = append(st.Expenses[:i], st.Expenses[i+1:]...)
		return true
	})
}

// CloseMonth archives the current period and starts a new one.
//
// The entry freezes salary, totals, free balance, contribution and copies of
// the categories and expenses. The expense log is then emptied. Categories,
// salary and investment settings carry over unchanged.
func (s *Store) CloseMonth() core.HistoryEntry {
	now := s.now()
	id := s.newID()
	var entry core.HistoryEntry
	s.update(func(st *State) bool {
		entry = core.HistoryEntry{
			ID:                  id,
			Label:               core.MonthLabel(now.Year(), now.Month()),
			Year:                now.Year(),
			Month:               now.Month(),
			Salary:              st.Salary,
			TotalBudgeted:       st.TotalBudgeted(),
			TotalExpenses:       st.TotalExpenses(),
			FreeBalance:         st.FreeBalance(),
			MonthlyContribution: st.Investment.MonthlyContribution,
			Categories:          core.CloneCategories(st.Categories),
			Expenses:            core.CloneExpenses(st.Expenses),
			ClosedAt:            core.DateOf(now),
		}
		st.History = append([]core.HistoryEntry{entry}, st.History...)
		st.Expenses = nil
		return true
	})
	return entry.Clone()
}

// RemoveHistoryItem deletes an archived month. It reports whether one was removed.
func (s *Store) RemoveHistoryItem(id string) bool {
	return s.update(func(st *State) bool {
		i := st.findHistory(id)
		if i < 0 {
			return false
		}
		st.History = append(st.History[:i], st.History[i+1:]...)
		return true
	})
}

func clampMonths(m int) int {
	return min(max(m, 0), MaxProjectionMonths)
}
