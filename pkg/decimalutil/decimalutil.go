// Package decimalutil centralises the fixed-point rounding rules this
// engine applies to prices, percentages and indicator output: 4 fractional
// digits, round-half-to-even, per spec.md §4.6.
package decimalutil

import "github.com/shopspring/decimal"

// Places is the number of fractional digits carried by every persisted
// price, percentage, and indicator value.
const Places = 4

func init() {
	decimal.DivisionPrecision = Places + 2
}

// Round4 rounds d to Places fractional digits using round-half-to-even
// (banker's rounding), matching shopspring/decimal's RoundBank.
func Round4(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Places)
}

// FromFloat64 converts a float64 computed by a numeric library (talib,
// gonum) into a decimal rounded to Places digits.
func FromFloat64(f float64) decimal.Decimal {
	return Round4(decimal.NewFromFloat(f))
}
