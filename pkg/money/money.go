// Package money holds minor-unit arithmetic shared by pricing, earnings and payouts.
// Amounts are int64 cents; percentages are decimals in the 0..100 range.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// PercentOf returns pct% of cents rounded half-up to the nearest cent.
func PercentOf(cents int64, pct decimal.Decimal) int64 {
	if cents == 0 || pct.IsZero() {
		return 0
	}
	return decimal.NewFromInt(cents).Mul(pct).Div(hundred).Round(0).IntPart()
}

// ProRata returns part/whole of cents rounded half-up. A zero whole yields zero.
func ProRata(cents, part, whole int64) int64 {
	if whole == 0 || cents == 0 {
		return 0
	}
	return decimal.NewFromInt(cents).Mul(decimal.NewFromInt(part)).Div(decimal.NewFromInt(whole)).Round(0).IntPart()
}

// NonNegative clamps negative amounts to zero.
func NonNegative(cents int64) int64 {
	if cents < 0 {
		return 0
	}
	return cents
}

// ValidPercentage reports whether pct lies in [0, 100].
func ValidPercentage(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(hundred)
}

// FormatCents renders cents as a major-unit string with two decimals.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
