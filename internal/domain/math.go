package domain

import "github.com/shopspring/decimal"

// DisplayPrecision is the number of decimal places kept on computed interest amounts.
const DisplayPrecision = 8

// powPrecision bounds intermediate results of PowInt.
const powPrecision = 24

// SafeDiv divides a by b, returning zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// PowInt raises base to a non-negative integer power by repeated squaring, rounding
// intermediate products to 24 places. Negative exponents return one.
func PowInt(base decimal.Decimal, exp int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base).Round(powPrecision)
		}
		exp >>= 1
		if exp > 0 {
			base = base.Mul(base).Round(powPrecision)
		}
	}
	return result
}
