package indicators

// BollingerResult holds the three band series.
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// BollingerBands returns SMA(period) plus and minus k population standard
// deviations.
func BollingerBands(prices []float64, period int, k float64) BollingerResult {
	middle := SMA(prices, period)
	std := RollingStd(prices, period)

	upper := nanSeries(len(prices))
	lower := nanSeries(len(prices))
	for i := range prices {
		if IsMissing(middle[i]) || IsMissing(std[i]) {
			continue
		}
		upper[i] = middle[i] + k*std[i]
		lower[i] = middle[i] - k*std[i]
	}

	return BollingerResult{Upper: upper, Middle: middle, Lower: lower}
}

// BandPosition returns (price - lower) / (upper - lower). Zero-width bands
// yield NaN.
func BandPosition(prices []float64, bands BollingerResult) []float64 {
	out := nanSeries(len(prices))
	for i := range prices {
		width := bands.Upper[i] - bands.Lower[i]
		if IsMissing(width) || width == 0 {
			continue
		}
		out[i] = (prices[i] - bands.Lower[i]) / width
	}
	return out
}
