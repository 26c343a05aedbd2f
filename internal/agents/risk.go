package agents

import (
	"context"
	"fmt"
	"strings"
)

// Risk tiers
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// RiskAgent never takes a direction. It turns volatility, drawdown and
// value at risk into a position size.
type RiskAgent struct{ BaseAgent }

// NewRiskAgent creates a risk manager.
func NewRiskAgent(name string, weight float64) *RiskAgent {
	return &RiskAgent{BaseAgent{name: name, kind: KindRisk, weight: weight}}
}

// RiskScore blends the three percentages 0.4 / 0.3 / 0.3.
func RiskScore(volatility, drawdown, valueAtRisk float64) float64 {
	return volatility*0.4 + drawdown*0.3 + valueAtRisk*0.3
}

// PositionTier maps a risk score to its tier and maximum position size.
func PositionTier(score float64) (tier string, size float64) {
	switch {
	case score < 20:
		return RiskLow, 0.10
	case score < 40:
		return RiskMedium, 0.05
	default:
		return RiskHigh, 0.02
	}
}

// Analyze implements Agent.
func (a *RiskAgent) Analyze(ctx context.Context, ticker string, mc *MarketContext) (*Opinion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := mc.RiskOrDefault()
	vol := floatOr(r.Volatility, 20)
	dd := floatOr(r.MaxDrawdown, 15)
	vr := floatOr(r.ValueAtRisk, 5)
	score := RiskScore(vol, dd, vr)

	var factors []string
	if vol > 30 {
		factors = append(factors, fmt.Sprintf("High volatility: %g%%", vol))
	}
	if dd > 20 {
		factors = append(factors, fmt.Sprintf("Large drawdown risk: %g%%", dd))
	}
	if len(factors) == 0 {
		factors = []string{fmt.Sprintf("Volatility: %g%%", vol)}
	}

	tier, size := PositionTier(score)
	reasoning := fmt.Sprintf("Risk score: %.1f - %s risk", score, strings.ToUpper(tier))
	return a.opinion(ticker, Neutral, int(100-score), reasoning, factors, ActionWait, size), nil
}
