// Package risk derives risk statistics from a close-price history.
package risk

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog/log"
)

// TradingDaysPerYear annualizes daily statistics.
const TradingDaysPerYear = 252

// ErrInsufficientHistory is returned when a series is too short.
var ErrInsufficientHistory = errors.New("insufficient price history")

// Market regimes
const (
	RegimeBullish          = "bullish"
	RegimeBearish          = "bearish"
	RegimeSideways         = "sideways"
	RegimeVolatileSideways = "volatile_sideways"
)

// Profile summarizes the risk of a price history. Percent fields are in
// percentage points.
type Profile struct {
	VolatilityPct  float64 `json:"volatility"`
	MaxDrawdownPct float64 `json:"max_drawdown"`
	VaRPct         float64 `json:"value_at_risk"`
	CVaRPct        float64 `json:"conditional_value_at_risk"`
	Sharpe         float64 `json:"sharpe_ratio"`
	Regime         string  `json:"market_regime"`
	TrendStrength  float64 `json:"trend_strength"`
}

// Config tunes Analyze.
type Config struct {
	VolatilityWindow int     `mapstructure:"volatility_window" yaml:"volatility_window"`
	VaRConfidence    float64 `mapstructure:"var_confidence" yaml:"var_confidence"`
	RiskFreeRate     float64 `mapstructure:"risk_free_rate" yaml:"risk_free_rate"`
}

// DefaultConfig uses a 30-bar volatility window and 95% VaR.
func DefaultConfig() Config {
	return Config{VolatilityWindow: 30, VaRConfidence: 0.95, RiskFreeRate: 0.04}
}

// MinHistory is the shortest close series Analyze accepts.
const MinHistory = 20

// Analyze computes the full risk profile of closes (oldest first).
func Analyze(closes []float64, cfg Config) (*Profile, error) {
	if len(closes) < MinHistory {
		return nil, fmt.Errorf("%w: need %d closes, got %d", ErrInsufficientHistory, MinHistory, len(closes))
	}

	returns := Returns(closes)

	window := cfg.VolatilityWindow
	if window <= 0 || window > len(returns) {
		window = len(returns)
	}
	recent := returns[len(returns)-window:]

	varValue, cvarValue, err := CalculateVaR(returns, cfg.VaRConfidence)
	if err != nil {
		return nil, err
	}
	_, maxDD, _ := CalculateDrawdown(closes)

	// Sharpe is undefined on a flat series; report zero.
	sharpe, err := CalculateSharpeRatio(returns, cfg.RiskFreeRate)
	if err != nil {
		sharpe = 0
	}

	regime := DetectRegime(closes)

	p := &Profile{
		VolatilityPct:  StdDev(recent) * math.Sqrt(TradingDaysPerYear) * 100,
		MaxDrawdownPct: maxDD * 100,
		VaRPct:         varValue * 100,
		CVaRPct:        cvarValue * 100,
		Sharpe:         sharpe,
		Regime:         regime.Regime,
		TrendStrength:  regime.TrendStrength,
	}

	log.Debug().
		Float64("volatility_pct", p.VolatilityPct).
		Float64("max_drawdown_pct", p.MaxDrawdownPct).
		Float64("var_pct", p.VaRPct).
		Str("regime", p.Regime).
		Msg("Risk profile calculated")

	return p, nil
}

// Returns converts closes into simple daily returns (one shorter).
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

// CalculateSharpeRatio annualizes mean and sample deviation of daily
// returns: (252*mean - rf) / (sqrt(252)*std).
func CalculateSharpeRatio(returns []float64, riskFreeRate float64) (float64, error) {
	if len(returns) == 0 {
		return 0, fmt.Errorf("returns array is empty")
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return 0, fmt.Errorf("standard deviation is zero")
	}

	annualizedReturn := mean(returns) * TradingDaysPerYear
	annualizedStdDev := stdDev * math.Sqrt(TradingDaysPerYear)
	return (annualizedReturn - riskFreeRate) / annualizedStdDev, nil
}

// RegimeData describes the detected market regime.
type RegimeData struct {
	Regime        string
	Volatility    float64
	ShortMA       float64
	LongMA        float64
	TrendStrength float64
}

// DetectRegime classifies the trend of closes from the 10/20-bar moving
// average spread and the overall price change. High daily volatility turns
// a sideways market into volatile_sideways.
func DetectRegime(closes []float64) RegimeData {
	volatility := StdDev(Returns(closes))
	shortMA := movingAverage(closes, 10)
	longMA := movingAverage(closes, 20)

	priceTrend := 0.0
	if len(closes) > 0 && closes[0] > 0 {
		priceTrend = (closes[len(closes)-1] - closes[0]) / closes[0]
	}
	maTrend := 0.0
	if longMA > 0 {
		maTrend = (shortMA - longMA) / longMA
	}

	regime := RegimeSideways
	switch {
	case maTrend > 0.02 && priceTrend > 0:
		regime = RegimeBullish
	case maTrend < -0.02 && priceTrend < 0:
		regime = RegimeBearish
	case volatility > 0.05:
		regime = RegimeVolatileSideways
	}

	return RegimeData{
		Regime:        regime,
		Volatility:    volatility,
		ShortMA:       shortMA,
		LongMA:        longMA,
		TrendStrength: (priceTrend + maTrend) / 2,
	}
}

// MacroRegime maps a detected regime onto the bullish/bearish/neutral
// vocabulary of macro analysis.
func MacroRegime(regime string) string {
	switch regime {
	case RegimeBullish, RegimeBearish:
		return regime
	default:
		return "neutral"
	}
}

// CalculateVaR returns historical value at risk and expected shortfall as
// positive loss fractions at confidenceLevel (e.g. 0.95).
func CalculateVaR(returns []float64, confidenceLevel float64) (float64, float64, error) {
	if len(returns) == 0 {
		return 0, 0, fmt.Errorf("returns array is empty")
	}
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		return 0, 0, fmt.Errorf("confidence level must be between 0 and 1")
	}

	sorted := slices.Clone(returns)
	slices.Sort(sorted)

	index := int(float64(len(sorted)) * (1 - confidenceLevel))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	varValue := -sorted[index]

	var cvarSum float64
	for i := 0; i <= index; i++ {
		cvarSum += sorted[i]
	}
	cvarValue := -cvarSum / float64(index+1)

	return varValue, cvarValue, nil
}

// CalculateDrawdown returns the current and maximum peak-to-trough
// drawdown fractions of a series, and its peak.
func CalculateDrawdown(series []float64) (currentDD float64, maxDD float64, peak float64) {
	if len(series) == 0 {
		return 0, 0, 0
	}

	peak = series[0]
	for _, v := range series {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}

	if last := series[len(series)-1]; last < peak && peak > 0 {
		currentDD = (peak - last) / peak
	}
	return currentDD, maxDD, peak
}

// StdDev is the sample standard deviation (n-1).
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	if len(values) > 1 {
		variance /= float64(len(values) - 1)
	} else {
		variance /= float64(len(values))
	}
	return math.Sqrt(variance)
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func movingAverage(values []float64, period int) float64 {
	if len(values) < period || period <= 0 {
		return 0
	}
	return mean(values[len(values)-period:])
}
