// Package projection computes compound-growth schedules for a savings balance
// with a fixed monthly contribution.
//
// Everything here is a pure function of its inputs. The schedule is exposed
// both as a restartable iterator and as a collected slice.
package projection

import (
	"iter"
	"math"

	"financia/internal/core"
)

// MaxMonths caps the horizon at one hundred years.
const MaxMonths = 1200

// Params are the projector inputs.
type Params struct {
	Accumulated       float64 // starting balance
	Contribution      float64 // deposited at the start of every month
	AnnualRatePercent float64 // nominal yearly rate, 12 means 12%
	Months            int
}

// Step is one month of the schedule.
type Step struct {
	Month         int
	Total         float64 // balance after this month
	Invested      float64 // accumulated plus contributions so far
	Profit        float64 // Total - Invested
	MonthlyProfit float64 // interest earned during this month only
}

// Summary condenses a schedule into its final figures.
type Summary struct {
	Months        int
	FinalBalance  float64
	TotalInvested float64
	TotalProfit   float64
	ProfitPercent float64 // TotalProfit / TotalInvested * 100, 0 when nothing invested
}

// MonthlyRate converts a yearly percentage into the equivalent compound
// monthly rate: (1 + annual/100)^(1/12) - 1.
// Non-finite input yields 0; the rate is clamped to
// [core.MinAnnualRate, core.MaxAnnualRate].
func MonthlyRate(annualPercent float64) float64 {
	return math.Pow(1+core.ClampRate(annualPercent)/100, 1.0/12) - 1
}

// Steps returns the schedule as a lazy sequence. Ranging over it twice
// recomputes from the start. Months <= 0 yields nothing and the horizon is
// capped at MaxMonths. Amounts are clamped with core.ClampAmount, so every
// figure stays finite.
func Steps(p Params) iter.Seq[Step] {
	return func(yield func(Step) bool) {
		months := min(p.Months, MaxMonths)
		if months <= 0 {
			return
		}
		rate := MonthlyRate(p.AnnualRatePercent)
		contribution := core.ClampAmount(p.Contribution)
		balance := core.ClampAmount(p.Accumulated)
		invested := balance

		for i := 1; i <= months; i++ {
			prev := balance
			balance = (balance + contribution) * (1 + rate)
			invested += contribution
			step := Step{
				Month:         i,
				Total:         balance,
				Invested:      invested,
				Profit:        balance - invested,
				MonthlyProfit: balance - (prev + contribution),
			}
			if !yield(step) {
				return
			}
		}
	}
}

// Project collects the full schedule.
func Project(p Params) []Step {
	if p.Months <= 0 {
		return nil
	}
	out := make([]Step, 0, min(p.Months, MaxMonths))
	for s := range Steps(p) {
		out = append(out, s)
	}
	return out
}

// Summarize walks the schedule and reports the final figures. For an empty
// schedule every field is 0.
func Summarize(p Params) Summary {
	var last Step
	n := 0
	for s := range Steps(p) {
		last = s
		n++
	}
	if n == 0 {
		return Summary{}
	}
	return Summary{
		Months:        n,
		FinalBalance:  last.Total,
		TotalInvested: last.Invested,
		TotalProfit:   last.Profit,
		ProfitPercent: core.Ratio(last.Profit, last.Invested) * 100,
	}
}
