// Package moneypkg converts integer minor units into display amounts.
package moneypkg

import "github.com/shopspring/decimal"

// MinorUnitExponent is the number of decimal places held by one minor unit.
const MinorUnitExponent = 2

// Format renders an amount held in minor units as a fixed two-digit decimal,
// e.g. 12345 becomes "123.45" and -5 becomes "-0.05".
func Format(minor int64) string {
	return decimal.New(minor, -MinorUnitExponent).StringFixed(MinorUnitExponent)
}
