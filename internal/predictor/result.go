package predictor

import (
	"math"
	"sort"
	"time"
)

// Recommendation is the five-tier call derived from a predicted change.
type Recommendation string

// Recommendations
const (
	StrongBuy  Recommendation = "STRONG_BUY"
	Buy        Recommendation = "BUY"
	Hold       Recommendation = "HOLD"
	Sell       Recommendation = "SELL"
	StrongSell Recommendation = "STRONG_SELL"
)

// RecommendationFor maps a predicted percentage change to a tier.
func RecommendationFor(changePct float64) Recommendation {
	switch {
	case changePct > 3:
		return StrongBuy
	case changePct > 1:
		return Buy
	case changePct < -3:
		return StrongSell
	case changePct < -1:
		return Sell
	default:
		return Hold
	}
}

// IsStrong reports whether r is one of the strong tiers.
func (r Recommendation) IsStrong() bool {
	return r == StrongBuy || r == StrongSell
}

// Technicals are indicator readings reported alongside a prediction.
// Volatility7d is a percentage.
type Technicals struct {
	RSI           float64  `json:"rsi"`
	MACD          float64  `json:"macd"`
	MACDSignal    float64  `json:"macd_signal"`
	Volatility7d  float64  `json:"volatility_7d"`
	BBPosition    *float64 `json:"bb_position,omitempty"`
	MA7           *float64 `json:"ma_7,omitempty"`
	MA30          *float64 `json:"ma_30,omitempty"`
	RSISignal     string   `json:"rsi_signal,omitempty"`     // overbought, oversold, neutral
	MACDCrossover string   `json:"macd_crossover,omitempty"` // bullish, bearish, none
}

// FeatureImportance is one entry of a model's top factors.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// PredictionResult is a forecast for one symbol and horizon.
type PredictionResult struct {
	Symbol          string              `json:"symbol"`
	CurrentPrice    float64             `json:"current_price"`
	PredictedPrice  float64             `json:"predicted_price"`
	PredictedChange float64             `json:"predicted_change"`
	HorizonDays     int                 `json:"horizon_days"`
	Confidence      float64             `json:"confidence"`
	Recommendation  Recommendation      `json:"recommendation"`
	Technicals      Technicals          `json:"technicals"`
	TopFactors      []FeatureImportance `json:"top_factors"`
	Timestamp       time.Time           `json:"timestamp"`
	Fallback        bool                `json:"fallback"`
	FallbackReason  string              `json:"fallback_reason,omitempty"`
}

// baseConfidence shrinks with recent volatility (a fraction, not percent).
func baseConfidence(vol7 float64) float64 {
	return clamp(70-vol7*500, 30, 90)
}

// singleConfidence adds the tier bonus used by single-horizon predictions.
func singleConfidence(vol7 float64, rec Recommendation) float64 {
	base := baseConfidence(vol7)
	switch {
	case rec.IsStrong():
		base += 15
	case rec == Hold:
		base -= 10
	default:
		base += 5
	}
	return round(math.Min(95, base), 1)
}

// multiConfidence rewards held-out fit instead of the tier.
func multiConfidence(vol7, testR2 float64) float64 {
	return round(math.Min(95, baseConfidence(vol7)+math.Max(0, 20*testR2)), 1)
}

// topFeatures ranks importances descending; equal scores keep the later
// column first.
func topFeatures(columns []string, importances []float64, n int) []FeatureImportance {
	if len(importances) != len(columns) {
		return []FeatureImportance{}
	}
	idx := make([]int, len(columns))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := importances[idx[a]], importances[idx[b]]
		if ia != ib {
			return ia > ib
		}
		return idx[a] > idx[b]
	})
	if len(idx) > n {
		idx = idx[:n]
	}
	out := make([]FeatureImportance, len(idx))
	for i, j := range idx {
		out[i] = FeatureImportance{Feature: columns[j], Importance: round(importances[j], 3)}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func ptr(v float64) *float64 {
	return &v
}
