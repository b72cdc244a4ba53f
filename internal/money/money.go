// Package money holds the currency arithmetic used by the fee engine.
// Every amount is rounded to two fraction digits at each computation step,
// half away from zero, to match accounting precision.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of fraction digits kept on every amount.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Zero is the zero amount.
var Zero = decimal.Zero

// Round2 rounds an amount to two fraction digits.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns round2(base * pct / 100).
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(pct).Div(hundred))
}

// Sub returns round2(a - b).
func Sub(a, b decimal.Decimal) decimal.Decimal {
	return Round2(a.Sub(b))
}

// Add returns round2(a + b).
func Add(a, b decimal.Decimal) decimal.Decimal {
	return Round2(a.Add(b))
}

// ClampNonNegative returns d, or zero when d is negative.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return Zero
	}
	return d
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Parse reads a decimal amount such as "63.50".
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Round2(d), nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders an amount with exactly two fraction digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
