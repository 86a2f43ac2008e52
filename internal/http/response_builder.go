package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"financia/internal/core"
	"financia/internal/projection"
	"financia/internal/snapshot"
)

type (
	errorResponse struct {
		Error string `json:"error"`
	}

	categoryShare struct {
		snapshot.Category
		Share float64 `json:"share"`
	}

	summaryResponse struct {
		Revision             uint64          `json:"revision"`
		Salary               float64         `json:"salary"`
		TotalBudgeted        float64         `json:"totalBudgeted"`
		RemainingAfterBudget float64         `json:"remainingAfterBudget"`
		TotalExpenses        float64         `json:"totalExpenses"`
		FreeBalance          float64         `json:"freeBalance"`
		EmergencyFundGoal    float64         `json:"emergencyFundGoal"`
		CommitmentRatio      float64         `json:"commitmentRatio"`
		MonthlyContribution  float64         `json:"monthlyContribution"`
		Categories           []categoryShare `json:"categories"`
	}

	stepResponse struct {
		Month         int     `json:"month"`
		Total         float64 `json:"total"`
		Invested      float64 `json:"invested"`
		Profit        float64 `json:"profit"`
		MonthlyProfit float64 `json:"monthlyProfit"`
	}

	projectionSummaryResponse struct {
		Months        int     `json:"months"`
		FinalBalance  float64 `json:"finalBalance"`
		TotalInvested float64 `json:"totalInvested"`
		TotalProfit   float64 `json:"totalProfit"`
		ProfitPercent float64 `json:"profitPercent"`
	}

	projectionResponse struct {
		Investment snapshot.Investment       `json:"investment"`
		Steps      []stepResponse            `json:"steps"`
		Summary    projectionSummaryResponse `json:"summary"`
	}

	closeMonthResponse struct {
		Entry    snapshot.HistoryEntry `json:"entry"`
		Revision uint64                `json:"revision"`
	}
)

func newSummaryResponse(rev uint64, s core.Summary, shares []core.CategoryShare) summaryResponse {
	out := summaryResponse{
		Revision:             rev,
		Salary:               s.Salary,
		TotalBudgeted:        s.TotalBudgeted,
		RemainingAfterBudget: s.RemainingAfterBudget,
		TotalExpenses:        s.TotalExpenses,
		FreeBalance:          s.FreeBalance,
		EmergencyFundGoal:    s.EmergencyFundGoal,
		CommitmentRatio:      s.CommitmentRatio,
		MonthlyContribution:  s.MonthlyContribution,
		Categories:           make([]categoryShare, 0, len(shares)),
	}
	for _, sh := range shares {
		cat := snapshot.FromCategories([]core.Category{sh.Category})[0]
		out.Categories = append(out.Categories, categoryShare{Category: cat, Share: sh.Share})
	}
	return out
}

func newProjectionResponse(inv core.InvestmentParams, steps []projection.Step, sum projection.Summary) projectionResponse {
	out := projectionResponse{
		Investment: snapshot.Investment{
			AnnualInterestRate:    inv.AnnualInterestRate,
			ProjectionMonths:      inv.ProjectionMonths,
			AccumulatedInvestment: inv.AccumulatedInvestment,
			MonthlyContribution:   inv.MonthlyContribution,
		},
		Steps: make([]stepResponse, 0, len(steps)),
		Summary: projectionSummaryResponse{
			Months:        sum.Months,
			FinalBalance:  sum.FinalBalance,
			TotalInvested: sum.TotalInvested,
			TotalProfit:   sum.TotalProfit,
			ProfitPercent: sum.ProfitPercent,
		},
	}
	for _, st := range steps {
		out.Steps = append(out.Steps, stepResponse(st))
	}
	return out
}

// writeJSON writes v with the given status. v is encoded before the header
// goes out, so an unencodable value becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response", "error", err, "path", r.URL.Path)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}
