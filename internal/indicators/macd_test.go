package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMASeededWithFirstValue(t *testing.T) {
	ema := EMA([]float64{10, 20, 30}, 3)
	require.Len(t, ema, 3)

	// alpha = 0.5
	assert.Equal(t, 10.0, ema[0])
	assert.InDelta(t, 15.0, ema[1], 1e-12)
	assert.InDelta(t, 22.5, ema[2], 1e-12)
}

func TestEMASkipsLeadingMissing(t *testing.T) {
	ema := EMA([]float64{math.NaN(), 4, 8}, 3)

	assert.True(t, math.IsNaN(ema[0]))
	assert.Equal(t, 4.0, ema[1])
	assert.InDelta(t, 6.0, ema[2], 1e-12)
}

func TestMACDHistogramFlipsOnCrossover(t *testing.T) {
	// Decline then rally: the fast EMA crosses above the slow EMA during the
	// rally, and the histogram changes sign on the same bar the line crosses
	// its signal.
	prices := append(generatePriceData(40, 200, -2), generatePriceData(40, 122, 3)...)
	res := MACD(prices, 12, 26, 9)

	require.Len(t, res.Line, len(prices))
	require.Len(t, res.Signal, len(prices))
	require.Len(t, res.Histogram, len(prices))

	crossBar := -1
	for i := 1; i < len(prices); i++ {
		prevDiff := res.Line[i-1] - res.Signal[i-1]
		curDiff := res.Line[i] - res.Signal[i]
		if prevDiff <= 0 && curDiff > 0 {
			crossBar = i
			break
		}
	}
	require.Greater(t, crossBar, 40, "crossover should happen during the rally")

	assert.LessOrEqual(t, res.Histogram[crossBar-1], 0.0)
	assert.Greater(t, res.Histogram[crossBar], 0.0)
	assert.Equal(t, "bullish", MACDCrossover(res.Histogram[:crossBar+1]))
	assert.Equal(t, "none", MACDCrossover(res.Histogram[:crossBar+2]))
}

func TestMACDLineIsEMADifference(t *testing.T) {
	prices := generatePriceData(60, 100, 0.5)
	res := MACD(prices, 12, 26, 9)
	fast := EMA(prices, 12)
	slow := EMA(prices, 26)

	for i := range prices {
		assert.InDelta(t, fast[i]-slow[i], res.Line[i], 1e-12)
		assert.InDelta(t, res.Line[i]-res.Signal[i], res.Histogram[i], 1e-12)
	}
}

func TestMACDCrossover(t *testing.T) {
	tests := []struct {
		name     string
		hist     []float64
		expected string
	}{
		{"bullish", []float64{-0.2, 0.1}, "bullish"},
		{"bearish", []float64{0.3, -0.1}, "bearish"},
		{"no cross", []float64{0.3, 0.4}, "none"},
		{"too short", []float64{0.3}, "none"},
		{"missing", []float64{math.NaN(), 0.4}, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MACDCrossover(tt.hist))
		})
	}
}
