package alignment

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds v half away from zero to 2 decimals. ok is false for NaN and
// infinities.
func Round(v float64) (r float64, ok bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64(), true
}
