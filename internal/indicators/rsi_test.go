package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generatePriceData(count int, start, step float64) []float64 {
	prices := make([]float64, count)
	for i := range prices {
		prices[i] = start + float64(i)*step
	}
	return prices
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		check  func(t *testing.T, rsi []float64)
	}{
		{
			name:   "monotone increase reads 100",
			prices: generatePriceData(30, 10, 1),
			check: func(t *testing.T, rsi []float64) {
				for i := 14; i < len(rsi); i++ {
					assert.Equal(t, 100.0, rsi[i], "index %d", i)
				}
			},
		},
		{
			name:   "monotone decrease reads 0",
			prices: generatePriceData(30, 100, -1),
			check: func(t *testing.T, rsi []float64) {
				for i := 14; i < len(rsi); i++ {
					assert.InDelta(t, 0.0, rsi[i], 1e-9, "index %d", i)
				}
			},
		},
		{
			name:   "flat series is undefined",
			prices: generatePriceData(20, 50, 0),
			check: func(t *testing.T, rsi []float64) {
				for _, v := range rsi {
					assert.True(t, math.IsNaN(v))
				}
			},
		},
		{
			name:   "alternating moves balance to 50",
			prices: []float64{10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10},
			check: func(t *testing.T, rsi []float64) {
				assert.InDelta(t, 50.0, rsi[14], 1e-9)
				assert.InDelta(t, 50.0, rsi[16], 1e-9)
			},
		},
		{
			name:   "too short is all missing",
			prices: generatePriceData(14, 10, 1),
			check: func(t *testing.T, rsi []float64) {
				require.Len(t, rsi, 14)
				for _, v := range rsi {
					assert.True(t, math.IsNaN(v))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsi := RSI(tt.prices, 14)
			require.Len(t, rsi, len(tt.prices))
			for i := 0; i < 14 && i < len(rsi); i++ {
				assert.True(t, math.IsNaN(rsi[i]), "warm-up index %d should be missing", i)
			}
			tt.check(t, rsi)
		})
	}
}

func TestRSISignal(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{75, "overbought"},
		{70, "neutral"},
		{50, "neutral"},
		{30, "neutral"},
		{12, "oversold"},
		{math.NaN(), "neutral"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, RSISignal(tt.value), "rsi %v", tt.value)
	}
}
