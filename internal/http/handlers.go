package http

import (
	"errors"
	"net/http"

	"financia/internal/core"
	"financia/internal/log"
	"financia/internal/projection"
	"financia/internal/snapshot"
)

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, snapshot.FromState(s.store.State(), s.now()))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	st := s.store.State()
	writeJSON(w, r, http.StatusOK, newSummaryResponse(st.Revision, st.Summarize(), st.Shares()))
}

func (s *Server) handleSetSalary(w http.ResponseWriter, r *http.Request) {
	var req salaryRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.store.SetSalary(req.Salary.float())
	s.logMutation(r, "set_salary", log.NewFields().With(log.FieldAmount, req.Salary.float()))
	s.handleSummary(w, r)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.EmergencyFundMonths != nil {
		s.store.SetEmergencyFundMonths(int(*req.EmergencyFundMonths))
		s.logMutation(r, "set_emergency_fund_months", nil)
	}
	s.handleSummary(w, r)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !s.decode(w, r, &req) {
		return
	}
	c, err := s.store.AddCategory(sanitizeInput(req.Name), sanitizeInput(req.Icon), req.BudgetedAmount.float())
	if err != nil {
		s.validationError(w, r, err)
		return
	}
	s.logMutation(r, log.OpCreate, log.NewFields().With(log.FieldCategoryID, c.ID))
	writeJSON(w, r, http.StatusCreated, snapshot.FromCategories([]core.Category{c})[0])
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !s.decode(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if !s.store.UpdateBudget(id, req.Amount.float()) {
		if !s.hasCategory(id) {
			writeError(w, r, http.StatusNotFound, "category not found")
			return
		}
	} else {
		s.logMutation(r, log.OpUpdate, log.NewFields().With(log.FieldCategoryID, id))
	}
	s.handleSummary(w, r)
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.store.RemoveCategory(id) {
		s.logMutation(r, log.OpDelete, log.NewFields().With(log.FieldCategoryID, id))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	st := s.store.State()
	expenses := st.Expenses
	if r.URL.Query().Has("year") || r.URL.Query().Has("month") {
		year, month := parseYearMonth(r, s.now())
		expenses = st.ExpensesInMonth(year, month)
	}
	writeJSON(w, r, http.StatusOK, snapshot.FromExpenses(expenses))
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !s.decode(w, r, &req) {
		return
	}
	e, err := s.store.AddExpense(sanitizeInput(req.Description), req.Amount.float())
	if err != nil {
		s.validationError(w, r, err)
		return
	}
	s.logMutation(r, log.OpCreate, log.NewFields().With(log.FieldExpenseID, e.ID).With(log.FieldAmount, e.Amount))
	writeJSON(w, r, http.StatusCreated, snapshot.FromExpenses([]core.Expense{e})[0])
}

func (s *Server) handleRemoveExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.store.RemoveExpense(id) {
		s.logMutation(r, log.OpDelete, log.NewFields().With(log.FieldExpenseID, id))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetInvestment(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.store.UpdateInvestment(req.apply)
	s.logMutation(r, "set_investment", nil)
	s.handleProjection(w, r)
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	st := s.store.State()
	p := st.ProjectionParams()
	writeJSON(w, r, http.StatusOK, newProjectionResponse(st.Investment, projection.Project(p), projection.Summarize(p)))
}

func (s *Server) handleCloseMonth(w http.ResponseWriter, r *http.Request) {
	entry := s.store.CloseMonth()
	rev := s.store.Revision()
	s.logMutation(r, log.OpClose, log.NewFields().With(log.FieldHistoryID, entry.ID))
	writeJSON(w, r, http.StatusCreated, closeMonthResponse{Entry: snapshot.FromHistoryEntry(entry), Revision: rev})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history := s.store.History()
	out := make([]snapshot.HistoryEntry, 0, len(history))
	for _, h := range history {
		out = append(out, snapshot.FromHistoryEntry(h))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleRemoveHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.store.RemoveHistoryItem(id) {
		s.logMutation(r, log.OpDelete, log.NewFields().With(log.FieldHistoryID, id))
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode parses the body or writes a 400 and reports false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Invalid request body", log.FieldError, err)
		writeError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) validationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrTooLong),
		errors.Is(err, core.ErrInvalidAmount):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Mutation failed", log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) hasCategory(id string) bool {
	for _, c := range s.store.Categories() {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) logMutation(r *http.Request, op string, fields log.LogFields) {
	if fields == nil {
		fields = log.NewFields()
	}
	fields = fields.WithOperation(op).With(log.FieldRevision, s.store.Revision())
	log.FromContext(r.Context()).InfoContext(r.Context(), "State changed", fields.ToSlice()...)
}
