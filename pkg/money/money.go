package money

import (
	"github.com/shopspring/decimal"
)

const CentPlaces = 2

// Round rounds to cents, half away from zero.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(CentPlaces).InexactFloat64()
}

func RoundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Sum adds the values in decimal so long schedules do not accumulate binary error.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}

// Percent returns pct percent of amount, rounded to cents.
func Percent(amount, pct float64) float64 {
	return decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(CentPlaces).
		InexactFloat64()
}

func WithinCent(a, b float64) bool {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs().LessThanOrEqual(decimal.New(1, -CentPlaces))
}
