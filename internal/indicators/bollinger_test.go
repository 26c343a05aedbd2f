package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	sma := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, sma, 5)

	assert.True(t, math.IsNaN(sma[0]))
	assert.True(t, math.IsNaN(sma[1]))
	assert.InDelta(t, 2.0, sma[2], 1e-12)
	assert.InDelta(t, 3.0, sma[3], 1e-12)
	assert.InDelta(t, 4.0, sma[4], 1e-12)
}

func TestSMAWithLeadingMissing(t *testing.T) {
	sma := SMA([]float64{math.NaN(), 2, 4, 6}, 2)

	assert.True(t, math.IsNaN(sma[0]))
	assert.True(t, math.IsNaN(sma[1]))
	assert.InDelta(t, 3.0, sma[2], 1e-12)
	assert.InDelta(t, 5.0, sma[3], 1e-12)
}

func TestSMAShortSeries(t *testing.T) {
	for _, v := range SMA([]float64{1, 2}, 3) {
		assert.True(t, math.IsNaN(v))
	}
}

func TestRollingStdIsPopulation(t *testing.T) {
	std := RollingStd([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)

	for i := 0; i < 7; i++ {
		assert.True(t, math.IsNaN(std[i]))
	}
	// Population stddev of the classic example is exactly 2.
	assert.InDelta(t, 2.0, std[7], 1e-9)
}

func TestBollingerBands(t *testing.T) {
	prices := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	bands := BollingerBands(prices, 8, 2)

	assert.InDelta(t, 5.0, bands.Middle[7], 1e-9)
	assert.InDelta(t, 9.0, bands.Upper[7], 1e-9)
	assert.InDelta(t, 1.0, bands.Lower[7], 1e-9)
	assert.True(t, math.IsNaN(bands.Upper[6]))

	pos := BandPosition(prices, bands)
	assert.InDelta(t, 1.0, pos[7], 1e-9)
}

func TestBandPositionZeroWidth(t *testing.T) {
	prices := generatePriceData(25, 10, 0)
	bands := BollingerBands(prices, 20, 2)
	pos := BandPosition(prices, bands)

	assert.InDelta(t, 10.0, bands.Middle[24], 1e-12)
	for _, v := range pos {
		assert.True(t, math.IsNaN(v))
	}
}

func TestATR(t *testing.T) {
	high := []float64{10, 12, 13, 12}
	low := []float64{8, 9, 11, 10}
	closes := []float64{9, 11, 12, 11}

	tr := TrueRange(high, low, closes)
	require.Len(t, tr, 4)
	assert.InDelta(t, 2.0, tr[0], 1e-12)
	assert.InDelta(t, 3.0, tr[1], 1e-12) // 12-9
	assert.InDelta(t, 2.0, tr[2], 1e-12) // max(2, 13-11)
	assert.InDelta(t, 2.0, tr[3], 1e-12) // max(2, |12-12|, |10-12|)

	atr := ATR(high, low, closes, 2)
	assert.True(t, math.IsNaN(atr[0]))
	assert.InDelta(t, 2.5, atr[1], 1e-12)
	assert.InDelta(t, 2.5, atr[2], 1e-12)
	assert.InDelta(t, 2.0, atr[3], 1e-12)
}

func TestPctChangeAndShift(t *testing.T) {
	x := []float64{100, 110, 99}

	pct := PctChange(x, 1)
	assert.True(t, math.IsNaN(pct[0]))
	assert.InDelta(t, 0.10, pct[1], 1e-12)
	assert.InDelta(t, -0.10, pct[2], 1e-12)

	lag := Shift(x, 1)
	assert.True(t, math.IsNaN(lag[0]))
	assert.Equal(t, []float64{100, 110}, lag[1:])

	lead := Shift(x, -2)
	assert.Equal(t, 99.0, lead[0])
	assert.True(t, math.IsNaN(lead[1]))
	assert.True(t, math.IsNaN(lead[2]))
}
