package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNegativeAmount is returned when a price or charge is below zero.
var ErrNegativeAmount = errors.New("amount cannot be negative")

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "usd"

// MinorToMajor converts an amount in minor units (cents) to major units.
func MinorToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// MajorToMinor converts an amount in major units to minor units, rounding half away from zero.
func MajorToMinor(major decimal.Decimal) int64 {
	return major.Shift(2).Round(0).IntPart()
}

// ValidateAmount rejects negative amounts.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}
