package agents

import (
	"context"
	"fmt"
)

// FundamentalAgent scores valuation, earnings growth and insider activity.
type FundamentalAgent struct{ BaseAgent }

// NewFundamentalAgent creates a fundamental analyst.
func NewFundamentalAgent(name string, weight float64) *FundamentalAgent {
	return &FundamentalAgent{BaseAgent{name: name, kind: KindFundamental, weight: weight}}
}

// Analyze implements Agent.
func (a *FundamentalAgent) Analyze(ctx context.Context, ticker string, mc *MarketContext) (*Opinion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := mc.FundamentalsOrDefault()
	pe := floatOr(f.PERatio, 20)
	growth := floatOr(f.EarningsGrowth, 0)
	insider := intOr(f.InsiderTrades, 0)

	score := 0
	var factors []string

	switch {
	case pe < 15:
		score++
		factors = append(factors, fmt.Sprintf("Low P/E: %g", pe))
	case pe > 25:
		score--
		factors = append(factors, fmt.Sprintf("High P/E: %g", pe))
	}

	switch {
	case growth > 10:
		score++
		factors = append(factors, fmt.Sprintf("Strong growth: %g%%", growth))
	case growth < 0:
		score--
		factors = append(factors, "Negative growth")
	}

	switch {
	case insider > 0:
		score++
		factors = append(factors, "Insider buying")
	case insider < 0:
		score--
		factors = append(factors, "Insider selling")
	}

	if len(factors) == 0 {
		factors = []string{"Mixed fundamentals"}
	}

	dir := directionFor(score)
	conf := clampConfidence(scoredConfidence(score, dir))
	size := 0.01
	if dir == Bullish {
		size = 0.04
	}
	return a.opinion(ticker, dir, conf, fmt.Sprintf("Fundamental score: %d", score), factors, actionFor(dir, conf), size), nil
}
