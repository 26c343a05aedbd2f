package agents

import (
	"context"
	"fmt"
)

// TechnicalAgent scores RSI extremes, MACD sign and price against its
// moving average.
type TechnicalAgent struct{ BaseAgent }

// NewTechnicalAgent creates a technical analyst.
func NewTechnicalAgent(name string, weight float64) *TechnicalAgent {
	return &TechnicalAgent{BaseAgent{name: name, kind: KindTechnical, weight: weight}}
}

// Analyze implements Agent. A price at or below the moving average counts
// against the ticker, so an empty context scores -1.
func (a *TechnicalAgent) Analyze(ctx context.Context, ticker string, mc *MarketContext) (*Opinion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := mc.TechnicalsOrDefault()
	rsi := floatOr(t.RSI, 50)
	macd := floatOr(t.MACD, 0)
	ma := floatOr(t.MovingAvg, 0)
	price := floatOr(t.CurrentPrice, 0)

	score := 0
	var factors []string

	switch {
	case rsi < 30:
		score++
		factors = append(factors, fmt.Sprintf("Oversold (RSI: %g)", rsi))
	case rsi > 70:
		score--
		factors = append(factors, fmt.Sprintf("Overbought (RSI: %g)", rsi))
	}

	switch {
	case macd > 0:
		score++
		factors = append(factors, "MACD positive")
	case macd < 0:
		score--
		factors = append(factors, "MACD negative")
	}

	if price > ma {
		score++
		factors = append(factors, "Above MA")
	} else {
		score--
		factors = append(factors, "Below MA")
	}

	dir := directionFor(score)
	conf := clampConfidence(scoredConfidence(score, dir))
	size := 0.01
	if dir == Bullish {
		size = 0.03
	}
	return a.opinion(ticker, dir, conf, fmt.Sprintf("Technical score: %d", score), factors, actionFor(dir, conf), size), nil
}
