package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"financia/internal/budget"
	"financia/internal/snapshot"
)

var testNow = time.Date(2026, time.October, 19, 9, 30, 0, 0, time.Local)

func newTestServer(t *testing.T, opts Options) (*Server, *budget.Store) {
	t.Helper()
	n := 0
	store := budget.NewStore(
		budget.WithClock(func() time.Time { return testNow }),
		budget.WithIDGenerator(func() string { n++; return "id" + strconv.Itoa(n) }),
	)
	opts.Now = func() time.Time { return testNow }
	srv := NewServer(":0", store, opts)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	failing, _ := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})
	if rr := do(t, failing, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestSalaryAndSummary(t *testing.T) {
	srv, store := newTestServer(t, Options{})

	tests := []struct {
		body string
		want float64
	}{
		{`{"salary": 5000}`, 5000},
		{`{"salary": "4.500,50"}`, 4500.5},
		{`{"salary": "R$ 3200.25"}`, 3200.25},
		{`{"salary": "abc"}`, 0},
		{`{"salary": -10}`, 0},
		{`{"salary": null}`, 0},
	}
	for _, tc := range tests {
		rr := do(t, srv, http.MethodPut, "/api/salary", tc.body)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status %d", tc.body, rr.Code)
		}
		got := decodeBody[summaryResponse](t, rr)
		if got.Salary != tc.want || store.State().Salary != tc.want {
			t.Errorf("%s: salary %v, want %v", tc.body, got.Salary, tc.want)
		}
	}

	if rr := do(t, srv, http.MethodPut, "/api/salary", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("empty body: expected 400, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPut, "/api/salary", "{"); rr.Code != http.StatusBadRequest {
		t.Errorf("broken JSON: expected 400, got %d", rr.Code)
	}
}

func TestSummaryShares(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	do(t, srv, http.MethodPut, "/api/salary", `{"salary": 4000}`)
	do(t, srv, http.MethodPut, "/api/categories/1/budget", `{"amount": 1000}`)
	do(t, srv, http.MethodPut, "/api/categories/2/budget", `{"amount": "1000"}`)
	do(t, srv, http.MethodPut, "/api/investment", `{"monthlyContribution": 500}`)

	got := decodeBody[summaryResponse](t, do(t, srv, http.MethodGet, "/api/summary", ""))
	if got.TotalBudgeted != 2500 || got.RemainingAfterBudget != 1500 {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got.CommitmentRatio != 0.625 {
		t.Errorf("commitment ratio %v", got.CommitmentRatio)
	}
	if len(got.Categories) != 2 || got.Categories[0].Share != 0.25 {
		t.Errorf("unexpected shares %+v", got.Categories)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	srv, store := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/categories", `{"name": "  Lazer ", "budgetedAmount": "300,00"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rr.Code, rr.Body.String())
	}
	cat := decodeBody[snapshot.Category](t, rr)
	if cat.Name != "Lazer" || cat.BudgetedAmount != 300 || cat.Icon == "" {
		t.Fatalf("unexpected category %+v", cat)
	}

	if rr := do(t, srv, http.MethodPost, "/api/categories", `{"name": "   "}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank name: expected 422, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPut, "/api/categories/nope/budget", `{"amount": 1}`); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown category: expected 404, got %d", rr.Code)
	}

	rev := store.Revision()
	if rr := do(t, srv, http.MethodDelete, "/api/categories/"+cat.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/categories/"+cat.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("repeat delete status %d", rr.Code)
	}
	if store.Revision() != rev+1 {
		t.Fatalf("repeat delete must not bump revision: %d -> %d", rev, store.Revision())
	}
}

func TestExpensesAndCloseMonth(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	do(t, srv, http.MethodPut, "/api/salary", `{"salary": 3000}`)

	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"description": "Mercado", "amount": "120,50"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add expense status %d", rr.Code)
	}
	exp := decodeBody[snapshot.Expense](t, rr)
	if exp.Amount != 120.5 || exp.Date != "2026-10-19" {
		t.Fatalf("unexpected expense %+v", exp)
	}
	if rr := do(t, srv, http.MethodPost, "/api/expenses", `{"description": "", "amount": 5}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty description: expected 422, got %d", rr.Code)
	}

	list := decodeBody[[]snapshot.Expense](t, do(t, srv, http.MethodGet, "/api/expenses?year=2026&month=10", ""))
	if len(list) != 1 {
		t.Fatalf("expected 1 expense in October, got %d", len(list))
	}
	list = decodeBody[[]snapshot.Expense](t, do(t, srv, http.MethodGet, "/api/expenses?year=2026&month=9", ""))
	if len(list) != 0 {
		t.Fatalf("expected no expenses in September, got %d", len(list))
	}

	rr = do(t, srv, http.MethodPost, "/api/months/close", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("close status %d", rr.Code)
	}
	closed := decodeBody[closeMonthResponse](t, rr)
	if closed.Entry.Label != "outubro de 2026" || closed.Entry.TotalExpenses != 120.5 {
		t.Fatalf("unexpected entry %+v", closed.Entry)
	}
	if closed.Revision != store.Revision() {
		t.Fatalf("revision %d, store %d", closed.Revision, store.Revision())
	}
	if len(store.Expenses()) != 0 {
		t.Fatal("expenses should be cleared")
	}

	history := decodeBody[[]snapshot.HistoryEntry](t, do(t, srv, http.MethodGet, "/api/history", ""))
	if len(history) != 1 || history[0].ID != closed.Entry.ID {
		t.Fatalf("unexpected history %+v", history)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/history/"+closed.Entry.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete history status %d", rr.Code)
	}
	if len(store.History()) != 0 {
		t.Fatal("history should be empty")
	}
	if rr := do(t, srv, http.MethodDelete, "/api/expenses/missing", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("missing expense delete should be 204, got %d", rr.Code)
	}
}

func TestInvestmentProjection(t *testing.T) {
	srv, store := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPut, "/api/investment",
		`{"annualInterestRate": "12", "projectionMonths": 1, "accumulatedInvestment": 100}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	got := decodeBody[projectionResponse](t, rr)
	if len(got.Steps) != 1 || got.Summary.Months != 1 {
		t.Fatalf("unexpected projection %+v", got)
	}
	if d := got.Steps[0].Total - 100.9488792934583; d > 1e-9 || d < -1e-9 {
		t.Errorf("unexpected total %v", got.Steps[0].Total)
	}

	// Partial update keeps the other fields.
	do(t, srv, http.MethodPut, "/api/investment", `{"monthlyContribution": 50}`)
	inv := store.Investment()
	if inv.AnnualInterestRate != 12 || inv.ProjectionMonths != 1 || inv.AccumulatedInvestment != 100 || inv.MonthlyContribution != 50 {
		t.Fatalf("partial update lost fields: %+v", inv)
	}

	got = decodeBody[projectionResponse](t, do(t, srv, http.MethodGet, "/api/investment/projection", ""))
	if got.Investment.MonthlyContribution != 50 {
		t.Fatalf("projection does not reflect contribution: %+v", got.Investment)
	}
}

func TestInvestment_ConcurrentPartialUpdates(t *testing.T) {
	srv, store := newTestServer(t, Options{})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			do(t, srv, http.MethodPut, "/api/investment", `{"annualInterestRate": 7}`)
		}()
		go func() {
			defer wg.Done()
			do(t, srv, http.MethodPut, "/api/investment", `{"monthlyContribution": 250}`)
		}()
	}
	wg.Wait()

	inv := store.Investment()
	if inv.AnnualInterestRate != 7 || inv.MonthlyContribution != 250 {
		t.Fatalf("a concurrent update was lost: %+v", inv)
	}
}

func TestAddExpense_RejectsOversizedAmount(t *testing.T) {
	srv, store := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"description": "Iate", "amount": 1e308}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422", rr.Code)
	}
	if len(store.Expenses()) != 0 {
		t.Fatal("oversized expense was stored")
	}
	if rr := do(t, srv, http.MethodGet, "/api/summary", ""); rr.Code != http.StatusOK || rr.Body.Len() == 0 {
		t.Fatalf("summary status %d body %q", rr.Code, rr.Body.String())
	}
}

func TestSettingsEmergencyMonths(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	do(t, srv, http.MethodPut, "/api/salary", `{"salary": 1000}`)
	got := decodeBody[summaryResponse](t, do(t, srv, http.MethodPut, "/api/settings", `{"emergencyFundMonths": "3"}`))
	if store.State().EmergencyFundMonths != 3 || got.EmergencyFundGoal != 3000 {
		t.Fatalf("unexpected goal %v", got.EmergencyFundGoal)
	}
	do(t, srv, http.MethodPut, "/api/settings", `{"emergencyFundMonths": -4}`)
	if store.State().EmergencyFundMonths != 0 {
		t.Fatalf("negative months should clamp to 0")
	}
}

func TestStateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	doc := decodeBody[snapshot.Document](t, do(t, srv, http.MethodGet, "/api/state", ""))
	if doc.SchemaVersion != snapshot.SchemaVersion || len(doc.Categories) != 2 {
		t.Fatalf("unexpected state %+v", doc)
	}
}

func TestMutationsAreRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, Options{RequestsPerMinute: 2})
	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPut, "/api/salary", `{"salary": 1}`); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPut, "/api/salary", `{"salary": 1}`)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/summary", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", rr.Code)
	}
}

func TestWrongMethod(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	if rr := do(t, srv, http.MethodPost, "/api/summary", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
