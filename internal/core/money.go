// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts typed by users
// (Brazilian or international notation) and formatting them as reais.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

const (
	// MaxAmount bounds every stored money value, one trillion reais.
	// Sums over any realistic ledger stay finite.
	MaxAmount = 1e12

	// MinAnnualRate and MaxAnnualRate bound the yearly interest rate in
	// percent.
	MinAnnualRate = -100.0
	MaxAnnualRate = 1000.0
)

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SanitizeAmount coerces NaN and ±Inf to 0. Everything else passes through.
func SanitizeAmount(v float64) float64 {
	if !IsFinite(v) {
		return 0
	}
	return v
}

// ClampAmount coerces NaN and ±Inf to 0 and limits the magnitude to
// MaxAmount.
func ClampAmount(v float64) float64 {
	return min(max(SanitizeAmount(v), -MaxAmount), MaxAmount)
}

// NonNegative coerces non-finite and negative values to 0 and caps the
// result at MaxAmount.
func NonNegative(v float64) float64 {
	return min(max(SanitizeAmount(v), 0), MaxAmount)
}

// ClampRate coerces a yearly percentage into [MinAnnualRate, MaxAnnualRate].
// Non-finite input becomes 0.
func ClampRate(v float64) float64 {
	return min(max(SanitizeAmount(v), MinAnnualRate), MaxAnnualRate)
}

// Ratio is a/b, or 0 when b is 0 or the quotient is not finite.
func Ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return SanitizeAmount(a / b)
}

// ParseAmount converts user text to a float amount.
//
// Accepted forms include "12.34", "12,34", "1.234,56", "1,234.56" and an
// optional "R$" prefix. When both separators appear, the last one is the
// decimal separator. A lone separator repeated more than once is treated as
// a thousands separator. Returns ErrInvalidAmount for anything else.
//
// Examples:
//
//	ParseAmount("12,50")     -> 12.5, nil
//	ParseAmount("R$ 1.234,56") -> 1234.56, nil
//	ParseAmount("abc")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	s = normalizeSeparators(s)

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	digits := 0
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return 0, ErrInvalidAmount
			}
			digits++
		}
	}
	if digits == 0 {
		return 0, ErrInvalidAmount
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !IsFinite(v) {
		return 0, ErrInvalidAmount
	}
	if neg {
		v = -v
	}
	return v, nil
}

// AmountOrZero parses s and falls back to 0 on any error.
func AmountOrZero(s string) float64 {
	v, err := ParseAmount(s)
	if err != nil {
		return 0
	}
	return v
}

// normalizeSeparators rewrites s so that "." is the only (optional) decimal
// separator and thousands separators are removed.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

// FormatBRL formats v as Brazilian reais, e.g. "R$ 1.234,56".
// Values are rounded half away from zero to whole centavos for display only.
func FormatBRL(v float64) string {
	v = SanitizeAmount(v)
	cents := int64(math.Round(math.Abs(v) * 100))
	reais := cents / 100
	rem := cents % 100

	intPart := strconv.FormatInt(reais, 10)
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := "R$ " + b.String() + "," + pad2(rem)
	if v < 0 && cents > 0 {
		return "-" + out
	}
	return out
}

func pad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}
