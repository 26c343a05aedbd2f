package agents

import (
	"context"
	"fmt"
	"math"
)

// SentimentAgent blends FinBERT, Reddit and news scores into a composite.
type SentimentAgent struct{ BaseAgent }

// NewSentimentAgent creates a sentiment analyst.
func NewSentimentAgent(name string, weight float64) *SentimentAgent {
	return &SentimentAgent{BaseAgent{name: name, kind: KindSentiment, weight: weight}}
}

// Composite weighs the three sources 0.5 / 0.3 / 0.2.
func Composite(finbert, reddit, news float64) float64 {
	return finbert*0.5 + reddit*0.3 + news*0.2
}

// Analyze implements Agent.
func (a *SentimentAgent) Analyze(ctx context.Context, ticker string, mc *MarketContext) (*Opinion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := mc.SentimentOrDefault()
	finbert := floatOr(s.FinBERT, 0)
	reddit := floatOr(s.Reddit, 0)
	news := floatOr(s.News, 0)
	composite := Composite(finbert, reddit, news)

	dir := Neutral
	conf := 30
	switch {
	case composite > 0.2:
		dir = Bullish
		conf = int(50 + composite*40)
	case composite < -0.2:
		dir = Bearish
		conf = int(50 + math.Abs(composite)*40)
	}
	conf = clampConfidence(conf)

	var factors []string
	if finbert > 0.3 {
		factors = append(factors, fmt.Sprintf("FinBERT positive: %.2f", finbert))
	}
	if reddit > 0.4 {
		factors = append(factors, "Reddit sentiment strong")
	}
	if news < -0.2 {
		factors = append(factors, "News negative")
	}
	if len(factors) == 0 {
		factors = []string{"Neutral sentiment"}
	}

	size := 0.02
	if conf > 70 {
		size = 0.05
	}
	return a.opinion(ticker, dir, conf, fmt.Sprintf("Sentiment composite: %.2f", composite), factors, actionFor(dir, conf), size), nil
}
