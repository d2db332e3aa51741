package trading

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	decOne     = decimal.NewFromInt(1)
	decHundred = decimal.NewFromInt(100)
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

func decimalCompare(a, b float64) int {
	return decFromFloat(a).Cmp(decFromFloat(b))
}

func decimalLTE(a, b float64) bool { return decimalCompare(a, b) <= 0 }
func decimalGTE(a, b float64) bool { return decimalCompare(a, b) >= 0 }

// pctOfCost 按成本价换算百分比阈值：up 为止盈方向（cost*(1+pct/100)），否则止损方向。
func pctOfCost(cost, pct float64, up bool) float64 {
	base := decFromFloat(cost)
	ratio := decFromFloat(pct).Div(decHundred)
	var factor decimal.Decimal
	if up {
		factor = decOne.Add(ratio)
	} else {
		factor = decOne.Sub(ratio)
	}
	return decToFloat(base.Mul(factor))
}
