package marketctx

import (
	"math"

	"github.com/ajitpratap0/tradepro/internal/agents"
)

// Mock returns the fixed context used when live assembly fails.
func Mock() *agents.MarketContext {
	return &agents.MarketContext{
		SentimentScores: &agents.SentimentScores{
			Overall:       agents.Float(0.35),
			Label:         agents.String("POSITIVE"),
			NewsCount:     agents.Int(5),
			PositiveRatio: agents.Float(0.6),
		},
		Fundamentals: &agents.Fundamentals{
			PERatio:        agents.Float(18.5),
			EarningsGrowth: agents.Float(12.3),
			InsiderTrades:  agents.Int(5),
			MarketCap:      agents.String("Large"),
		},
		Technicals: &agents.Technicals{
			RSI:          agents.Float(45),
			MACD:         agents.Float(0.02),
			MACDSignal:   agents.Float(0.01),
			MovingAvg:    agents.Float(175.50),
			CurrentPrice: agents.Float(178.30),
			MA7:          agents.Float(176.50),
			MA30:         agents.Float(175.50),
			Volatility:   agents.Float(2.5),
			BBPosition:   agents.Float(0.55),
		},
		Macro: &agents.Macro{
			InterestRate: agents.Float(4.5),
			Inflation:    agents.Float(3.2),
			MarketRegime: agents.String("neutral"),
			VIX:          agents.Float(15.5),
		},
		Risk: &agents.Risk{
			Volatility:  agents.Float(22.5),
			MaxDrawdown: agents.Float(18.0),
			ValueAtRisk: agents.Float(4.2),
		},
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
