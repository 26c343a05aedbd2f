package indicators

import (
	"github.com/cinar/indicator/v2/trend"
	"github.com/markcheno/go-talib"
)

// SMA returns the simple moving average over period. The first period-1
// positions of the valid suffix are NaN.
func SMA(x []float64, period int) []float64 {
	out := nanSeries(len(x))
	start := validStart(x)
	valid := x[start:]
	if period < 1 || len(valid) < period {
		return out
	}

	// cinar's Sma drops its idle period, so the output is aligned to the tail.
	sma := trend.NewSmaWithPeriod[float64](period)
	offset := start + period - 1
	i := 0
	for v := range sma.Compute(toChan(valid)) {
		if offset+i < len(out) {
			out[offset+i] = v
		}
		i++
	}
	return out
}

// EMA returns the exponential moving average with smoothing 2/(span+1),
// seeded with the first valid value (no warm-up window).
func EMA(x []float64, span int) []float64 {
	out := nanSeries(len(x))
	start := validStart(x)
	if span < 1 || start == len(x) {
		return out
	}

	alpha := 2.0 / (float64(span) + 1.0)
	prev := x[start]
	out[start] = prev
	for i := start + 1; i < len(x); i++ {
		if IsMissing(x[i]) {
			out[i] = prev
			continue
		}
		prev = alpha*x[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

// RollingStd returns the population standard deviation over period.
func RollingStd(x []float64, period int) []float64 {
	out := nanSeries(len(x))
	start := validStart(x)
	valid := x[start:]
	if period < 1 || len(valid) < period {
		return out
	}

	std := talib.StdDev(valid, period, 1.0)
	for i := period - 1; i < len(valid); i++ {
		out[start+i] = std[i]
	}
	return out
}
