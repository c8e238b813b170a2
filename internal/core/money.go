// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts typed by a user
// and formatting them back for display.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string into an exact decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading sign. Exponents, NaN, infinities, thousands separators and
// empty input are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("3.75")  -> 3.75, nil
//	ParseAmount("3,75")  -> 3.75, nil
//	ParseAmount("-2")    -> -2, nil
//	ParseAmount("1e3")   -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")

	digits := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if digits == "" || strings.Count(digits, ".") > 1 || digits == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range digits {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with two decimal places for display.
// Use the decimal value itself for calculations.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
