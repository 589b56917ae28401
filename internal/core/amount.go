package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input into a non-negative decimal amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// Empty, non-numeric, or negative input returns ErrInvalidAmount. Zero is
// a valid amount.
//
// Examples:
//
//	ParseAmount("12.50") -> 12.5, nil
//	ParseAmount("12,50") -> 12.5, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount enforces amount >= 0 and a magnitude that fits the
// store's REAL column. The sign of an entry is carried by its type, never
// by the amount.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrInvalidAmount
	}
	if !finite(d.InexactFloat64()) {
		return ErrInvalidAmount
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// AmountFromFloat converts a stored REAL back into a decimal. Non-finite
// values return ErrInvalidAmount.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if !finite(f) {
		return decimal.Zero, ErrInvalidAmount
	}
	return decimal.NewFromFloat(f), nil
}
