package billing

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -2)
	two     = decimal.NewFromInt(2)
)

// SplitTolerance is the accepted gap between split entries and the grand total.
var SplitTolerance = cent

// DefaultRoundingUnit is used when settings leave the rounding unit unset.
var DefaultRoundingUnit = cent

// Round2 rounds half away from zero to two decimals. All monetary values in
// this package are non-negative at the rounding points, so this is half-up.
func Round2(x decimal.Decimal) decimal.Decimal {
	return x.Round(2)
}

// RoundToUnit rounds x to the nearest multiple of unit (half-up). A zero or
// negative unit falls back to cents.
func RoundToUnit(x, unit decimal.Decimal) decimal.Decimal {
	if unit.Sign() <= 0 {
		unit = cent
	}
	return x.Div(unit).Round(0).Mul(unit)
}

// Percent returns x*pct/100 without rounding.
func Percent(x, pct decimal.Decimal) decimal.Decimal {
	return x.Mul(pct).Div(hundred)
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
