package predictor

import (
	"hash/fnv"
	"math"
	"math/rand"
	"strconv"

	"github.com/ajitpratap0/tradepro/internal/market"
)

// fallbackConfidence is the fixed confidence of every momentum forecast.
const fallbackConfidence = 55.0

// fallback forecasts 10x the distance of the last close from its 30-bar
// mean, in percent, plus a jitter seeded by symbol and horizon. Series of
// 30 bars or fewer are treated as flat at 100.
func (p *Predictor) fallback(symbol string, horizon int, bars []market.PriceBar, reason error) *PredictionResult {
	price, ma7, ma30 := 100.0, 100.0, 100.0
	noise := jitter(symbol, horizon)
	var change float64

	if len(bars) > 30 {
		closes := market.Closes(bars)
		price = closes[len(closes)-1]
		ma7 = tailMean(closes, 7)
		ma30 = tailMean(closes, 30)
		change = MomentumChange(price, ma30) + noise*p.cfg.FallbackJitter
	} else {
		change = noise * 2 * p.cfg.FallbackJitter
	}
	if p.cfg.FallbackClip > 0 {
		change = clamp(change, -p.cfg.FallbackClip, p.cfg.FallbackClip)
	}

	res := &PredictionResult{
		Symbol:          symbol,
		CurrentPrice:    round(price, 2),
		PredictedPrice:  round(price*(1+change/100), 2),
		PredictedChange: round(change, 2),
		HorizonDays:     horizon,
		Confidence:      fallbackConfidence,
		Recommendation:  RecommendationFor(change),
		Technicals: Technicals{
			RSI:          50,
			Volatility7d: 2.5,
			BBPosition:   ptr(0.5),
			MA7:          ptr(round(ma7, 2)),
			MA30:         ptr(round(ma30, 2)),
		},
		TopFactors: []FeatureImportance{},
		Timestamp:  p.now(),
		Fallback:   true,
	}
	if reason != nil {
		res.FallbackReason = reason.Error()
	}
	return res
}

// MomentumChange is the percentage change implied by the distance of price
// from its 30-bar mean.
func MomentumChange(price, ma30 float64) float64 {
	if ma30 == 0 {
		return 0
	}
	return 10 * (price - ma30) / ma30
}

// jitter returns a value in [-1, 1) that depends only on symbol and horizon.
func jitter(symbol string, horizon int) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(market.NormalizeSymbol(symbol)))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(strconv.Itoa(horizon)))
	r := rand.New(rand.NewSource(int64(h.Sum64())))
	return r.Float64()*2 - 1
}

func tailMean(x []float64, n int) float64 {
	if len(x) < n {
		n = len(x)
	}
	if n == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range x[len(x)-n:] {
		sum += v
	}
	return sum / float64(n)
}
