// Package indicators computes technical indicators over price series.
//
// Every function takes plain float64 slices and returns new slices of the
// same length. Positions that cannot be computed yet (warm-up windows,
// undefined ratios) hold NaN rather than zero, so callers can tell missing
// values apart from real ones.
package indicators

import (
	"math"
)

// NaN is the missing-value marker used by every series in this package.
var NaN = math.NaN()

// IsMissing reports whether v is a missing value.
func IsMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// nanSeries returns a slice of length n filled with NaN.
func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = NaN
	}
	return out
}

// validStart returns the index of the first non-missing value, or len(x)
// when the series has none. Derived series (returns, MACD line) carry
// leading NaNs and are computed on their valid suffix.
func validStart(x []float64) int {
	for i, v := range x {
		if !IsMissing(v) {
			return i
		}
	}
	return len(x)
}

// toChan feeds a slice into a closed buffered channel for the cinar
// indicator pipeline.
func toChan(values []float64) <-chan float64 {
	ch := make(chan float64, len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return ch
}

// PctChange returns x[i]/x[i-periods] - 1. The first periods values are NaN.
func PctChange(x []float64, periods int) []float64 {
	out := nanSeries(len(x))
	for i := periods; i < len(x); i++ {
		prev := x[i-periods]
		if IsMissing(prev) || IsMissing(x[i]) || prev == 0 {
			continue
		}
		out[i] = x[i]/prev - 1
	}
	return out
}

// Shift moves the series n positions forward (n > 0, lag) or backward
// (n < 0, lead). Vacated positions are NaN.
func Shift(x []float64, n int) []float64 {
	out := nanSeries(len(x))
	for i := range x {
		j := i - n
		if j >= 0 && j < len(x) {
			out[i] = x[j]
		}
	}
	return out
}

// Last returns the final value of a series, or NaN when it is empty.
func Last(x []float64) float64 {
	if len(x) == 0 {
		return NaN
	}
	return x[len(x)-1]
}

// RSISignal classifies an RSI reading.
func RSISignal(rsi float64) string {
	switch {
	case IsMissing(rsi):
		return "neutral"
	case rsi > 70:
		return "overbought"
	case rsi < 30:
		return "oversold"
	default:
		return "neutral"
	}
}

// MACDCrossover inspects the last two histogram values and reports
// "bullish" when the MACD line crossed above its signal line on the latest
// bar, "bearish" when it crossed below, and "none" otherwise.
func MACDCrossover(hist []float64) string {
	if len(hist) < 2 {
		return "none"
	}
	prev, cur := hist[len(hist)-2], hist[len(hist)-1]
	if IsMissing(prev) || IsMissing(cur) {
		return "none"
	}
	switch {
	case prev <= 0 && cur > 0:
		return "bullish"
	case prev >= 0 && cur < 0:
		return "bearish"
	default:
		return "none"
	}
}
