package indicators

// RSI returns the relative strength index using simple rolling means of
// gains and losses over period price changes. The first period values are
// NaN. A window with no losses reads 100, and a flat window is undefined.
func RSI(prices []float64, period int) []float64 {
	out := nanSeries(len(prices))
	if period < 1 || len(prices) <= period {
		return out
	}

	gains := make([]float64, len(prices))
	losses := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var sumGain, sumLoss float64
	for i := 1; i <= period; i++ {
		sumGain += gains[i]
		sumLoss += losses[i]
	}
	for i := period; i < len(prices); i++ {
		if i > period {
			sumGain += gains[i] - gains[i-period]
			sumLoss += losses[i] - losses[i-period]
		}
		avgGain := sumGain / float64(period)
		avgLoss := sumLoss / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	// Running sums drift slightly below zero after many subtractions.
	const eps = 1e-12
	if avgLoss < eps {
		if avgGain < eps {
			return NaN
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
