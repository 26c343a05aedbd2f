package indicators

import (
	"github.com/markcheno/go-talib"
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|). The
// first bar has no previous close and uses high-low.
func TrueRange(high, low, closes []float64) []float64 {
	n := len(closes)
	if len(high) != n || len(low) != n || n == 0 {
		return nanSeries(n)
	}

	tr := talib.TRange(high, low, closes)
	tr[0] = high[0] - low[0]
	return tr
}

// ATR returns the simple rolling mean of the true range over period.
func ATR(high, low, closes []float64, period int) []float64 {
	return SMA(TrueRange(high, low, closes), period)
}
