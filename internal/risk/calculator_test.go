package risk

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateVaR(t *testing.T) {
	returns := []float64{-0.05, -0.03, -0.01, 0.0, 0.01, 0.02, 0.02, 0.03, 0.04, 0.05,
		-0.02, 0.01, 0.0, 0.01, 0.02, -0.01, 0.01, 0.0, 0.03, 0.01}

	varValue, cvarValue, err := CalculateVaR(returns, 0.95)
	require.NoError(t, err)
	// 5th percentile of 20 samples is index 1 of the sorted series.
	assert.InDelta(t, 0.03, varValue, 1e-12)
	assert.InDelta(t, 0.04, cvarValue, 1e-12)

	_, _, err = CalculateVaR(nil, 0.95)
	assert.Error(t, err)
	_, _, err = CalculateVaR(returns, 1.5)
	assert.Error(t, err)
}

func TestCalculateDrawdown(t *testing.T) {
	current, maxDD, peak := CalculateDrawdown([]float64{100, 120, 90, 110, 60, 80})

	assert.InDelta(t, 0.5, maxDD, 1e-12)
	assert.InDelta(t, 1-80.0/120.0, current, 1e-12)
	assert.Equal(t, 120.0, peak)

	current, maxDD, peak = CalculateDrawdown(nil)
	assert.Zero(t, current)
	assert.Zero(t, maxDD)
	assert.Zero(t, peak)
}

func TestDetectRegime(t *testing.T) {
	rising := make([]float64, 40)
	falling := make([]float64, 40)
	flat := make([]float64, 40)
	choppy := make([]float64, 40)
	for i := range rising {
		rising[i] = 100 * math.Pow(1.01, float64(i))
		falling[i] = 100 * math.Pow(0.99, float64(i))
		flat[i] = 100
		if i%2 == 0 {
			choppy[i] = 100
		} else {
			choppy[i] = 112
		}
	}

	tests := []struct {
		name     string
		closes   []float64
		expected string
		macro    string
	}{
		{"rising", rising, RegimeBullish, "bullish"},
		{"falling", falling, RegimeBearish, "bearish"},
		{"flat", flat, RegimeSideways, "neutral"},
		{"choppy", choppy, RegimeVolatileSideways, "neutral"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectRegime(tt.closes)
			assert.Equal(t, tt.expected, got.Regime)
			assert.Equal(t, tt.macro, MacroRegime(got.Regime))
		})
	}
}

func TestAnalyze(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/3)
	}

	p, err := Analyze(closes, DefaultConfig())
	require.NoError(t, err)

	returns := Returns(closes)
	assert.InDelta(t, StdDev(returns[len(returns)-30:])*math.Sqrt(252)*100, p.VolatilityPct, 1e-9)
	assert.Greater(t, p.MaxDrawdownPct, 0.0)
	assert.Less(t, p.MaxDrawdownPct, 100.0)
	assert.Greater(t, p.VaRPct, 0.0)
	assert.GreaterOrEqual(t, p.CVaRPct, p.VaRPct)
	assert.NotEmpty(t, p.Regime)

	_, err = Analyze(closes[:10], DefaultConfig())
	assert.True(t, errors.Is(err, ErrInsufficientHistory))
}

func TestCalculateSharpeRatio(t *testing.T) {
	_, err := CalculateSharpeRatio(nil, 0)
	assert.Error(t, err)

	_, err = CalculateSharpeRatio([]float64{0.01, 0.01}, 0)
	assert.Error(t, err)

	sharpe, err := CalculateSharpeRatio([]float64{0.01, 0.02, 0.0, 0.01}, 0)
	require.NoError(t, err)
	assert.Greater(t, sharpe, 0.0)
}

func TestStdDev(t *testing.T) {
	assert.InDelta(t, math.Sqrt(32.0/7.0), StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
	assert.Zero(t, StdDev(nil))
}
