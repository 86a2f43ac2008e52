package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"financia/internal/core"
)

const maxBodyBytes = 64 << 10

var errEmptyBody = errors.New("request body required")

// flexAmount accepts a JSON number or a string such as "1.234,56" or
// "R$ 12,50". Anything else decodes as 0, never NaN.
type flexAmount float64

func (a *flexAmount) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*a = flexAmount(core.SanitizeAmount(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = flexAmount(core.AmountOrZero(s))
		return nil
	}
	*a = 0
	return nil
}

func (a flexAmount) float() float64 { return float64(a) }

// flexInt accepts whole or fractional numbers and numeric strings,
// truncating toward zero.
type flexInt int

func (i *flexInt) UnmarshalJSON(b []byte) error {
	var a flexAmount
	if err := a.UnmarshalJSON(b); err != nil {
		return err
	}
	v := math.Trunc(a.float())
	switch {
	case v > math.MaxInt32:
		v = math.MaxInt32
	case v < math.MinInt32:
		v = math.MinInt32
	}
	*i = flexInt(v)
	return nil
}

type (
	salaryRequest struct {
		Salary flexAmount `json:"salary"`
	}

	settingsRequest struct {
		EmergencyFundMonths *flexInt `json:"emergencyFundMonths"`
	}

	categoryRequest struct {
		Name           string     `json:"name"`
		Icon           string     `json:"icon"`
		BudgetedAmount flexAmount `json:"budgetedAmount"`
	}

	budgetRequest struct {
		Amount flexAmount `json:"amount"`
	}

	expenseRequest struct {
		Description string     `json:"description"`
		Amount      flexAmount `json:"amount"`
	}

	// investmentRequest updates only the fields present.
	investmentRequest struct {
		AnnualInterestRate    *flexAmount `json:"annualInterestRate"`
		ProjectionMonths      *flexInt    `json:"projectionMonths"`
		AccumulatedInvestment *flexAmount `json:"accumulatedInvestment"`
		MonthlyContribution   *flexAmount `json:"monthlyContribution"`
	}
)

// apply merges the present fields into cur.
func (req investmentRequest) apply(cur *core.InvestmentParams) {
	if req.AnnualInterestRate != nil {
		cur.AnnualInterestRate = req.AnnualInterestRate.float()
	}
	if req.ProjectionMonths != nil {
		cur.ProjectionMonths = int(*req.ProjectionMonths)
	}
	if req.AccumulatedInvestment != nil {
		cur.AccumulatedInvestment = req.AccumulatedInvestment.float()
	}
	if req.MonthlyContribution != nil {
		cur.MonthlyContribution = req.MonthlyContribution.float()
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errEmptyBody
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
