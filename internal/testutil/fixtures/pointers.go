// Package fixtures provides test data builders and helpers.
package fixtures

import (
	"github.com/shopspring/decimal"
)

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

// Float64Ptr returns a pointer to the given float64.
func Float64Ptr(f float64) *float64 {
	return &f
}

// Dec parses a decimal literal and panics on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecPtr returns a pointer to the parsed decimal.
func DecPtr(s string) *decimal.Decimal {
	d := Dec(s)
	return &d
}
