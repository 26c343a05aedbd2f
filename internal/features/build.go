package features

import (
	"fmt"
	"math"
	"time"

	"github.com/ajitpratap0/tradepro/internal/indicators"
	"github.com/ajitpratap0/tradepro/internal/market"
)

var (
	// MAWindows are the moving-average windows for ma_N and ma_ratio_N.
	MAWindows = []int{7, 14, 30, 50}
	// Lags are the shifts for return_lag_N and price_lag_N.
	Lags = []int{1, 3, 7, 14}
)

const (
	rsiPeriod    = 14
	macdFast     = 12
	macdSlow     = 26
	macdSignal   = 9
	bbPeriod     = 20
	bbK          = 2.0
	atrPeriod    = 14
	volumeWindow = 7
)

// Build derives the feature table from bars. Rows lacking history for a
// window carry NaN in that column; nothing is imputed. Windows count bars,
// not calendar days, so weekend and holiday gaps are not filled.
func Build(bars []market.PriceBar) *Table {
	n := len(bars)
	ts := make([]time.Time, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	for i, b := range bars {
		ts[i] = b.Timestamp
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
		volume[i] = b.Volume
	}

	t := newTable(ts)
	t.add(ColOpen, open)
	t.add(ColHigh, high)
	t.add(ColLow, low)
	t.add(ColClose, closes)
	t.add(ColVolume, volume)

	returns := indicators.PctChange(closes, 1)
	t.add("returns", returns)
	t.add("log_returns", logReturns(closes))

	for _, w := range MAWindows {
		ma := indicators.SMA(closes, w)
		t.add(fmt.Sprintf("ma_%d", w), ma)
		t.add(fmt.Sprintf("ma_ratio_%d", w), ratio(closes, ma))
	}

	for _, lag := range Lags {
		t.add(fmt.Sprintf("return_lag_%d", lag), indicators.Shift(returns, lag))
		t.add(fmt.Sprintf("price_lag_%d", lag), indicators.Shift(closes, lag))
	}

	t.add("rsi", indicators.RSI(closes, rsiPeriod))

	macd := indicators.MACD(closes, macdFast, macdSlow, macdSignal)
	t.add("macd", macd.Line)
	t.add("macd_signal", macd.Signal)
	t.add("macd_hist", macd.Histogram)

	bands := indicators.BollingerBands(closes, bbPeriod, bbK)
	t.add("bb_upper", bands.Upper)
	t.add("bb_middle", bands.Middle)
	t.add("bb_lower", bands.Lower)
	t.add("bb_position", indicators.BandPosition(closes, bands))

	t.add("volatility_7", indicators.RollingStd(returns, 7))
	t.add("volatility_30", indicators.RollingStd(returns, 30))

	t.add("atr", indicators.ATR(high, low, closes, atrPeriod))

	volMA := indicators.SMA(volume, volumeWindow)
	t.add("volume_ma_7", volMA)
	t.add("volume_ratio", ratio(volume, volMA))

	return t
}

func logReturns(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		if i == 0 || closes[i-1] <= 0 || closes[i] <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(closes[i] / closes[i-1])
	}
	return out
}

// ratio divides elementwise; missing or zero denominators yield NaN.
func ratio(num, den []float64) []float64 {
	out := make([]float64, len(num))
	for i := range num {
		if indicators.IsMissing(den[i]) || den[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = num[i] / den[i]
	}
	return out
}
