package agents

import (
	"context"
	"fmt"
)

// MacroAgent scores interest rates, inflation and the market regime.
type MacroAgent struct{ BaseAgent }

// NewMacroAgent creates a macro economist.
func NewMacroAgent(name string, weight float64) *MacroAgent {
	return &MacroAgent{BaseAgent{name: name, kind: KindMacro, weight: weight}}
}

// Analyze implements Agent. The macro view never suggests buying.
func (a *MacroAgent) Analyze(ctx context.Context, ticker string, mc *MarketContext) (*Opinion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := mc.MacroOrDefault()
	rate := floatOr(m.InterestRate, 5)
	inflation := floatOr(m.Inflation, 3)
	regime := stringOr(m.MarketRegime, "neutral")

	score := 0
	var factors []string

	switch {
	case rate < 3:
		score++
		factors = append(factors, "Low rates (bullish)")
	case rate > 5:
		score--
		factors = append(factors, "High rates (bearish)")
	}

	switch {
	case inflation < 2:
		score++
		factors = append(factors, "Low inflation")
	case inflation > 4:
		score--
		factors = append(factors, "High inflation")
	}

	switch regime {
	case "bullish":
		score++
		factors = append(factors, "Bullish market regime")
	case "bearish":
		score--
		factors = append(factors, "Bearish market regime")
	}

	if len(factors) == 0 {
		factors = []string{"Mixed macro"}
	}

	dir := directionFor(score)
	conf := 50
	switch dir {
	case Bullish:
		conf = 75
	case Bearish:
		conf = 70
	}
	return a.opinion(ticker, dir, conf, fmt.Sprintf("Macro score: %d", score), factors, ActionWait, 0.02), nil
}
