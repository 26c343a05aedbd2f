package agents

import "github.com/ajitpratap0/tradepro/internal/predictor"

// MarketContext is the read-only snapshot shared by every agent in one
// analysis. Any section or field may be nil; agents then use the
// documented default.
type MarketContext struct {
	Technicals      *Technicals                 `json:"technicals,omitempty"`
	Fundamentals    *Fundamentals               `json:"fundamentals,omitempty"`
	Macro           *Macro                      `json:"macro,omitempty"`
	Risk            *Risk                       `json:"risk,omitempty"`
	SentimentScores *SentimentScores            `json:"sentiment_scores,omitempty"`
	Prediction      *predictor.PredictionResult `json:"prediction,omitempty"`
}

// Technicals defaults: RSI 50, MACD 0, MovingAvg 0, CurrentPrice 0,
// Volatility 2.5, BBPosition 0.5.
type Technicals struct {
	RSI          *float64 `json:"rsi,omitempty"`
	MACD         *float64 `json:"macd,omitempty"`
	MACDSignal   *float64 `json:"macd_signal,omitempty"`
	MovingAvg    *float64 `json:"moving_avg,omitempty"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	MA7          *float64 `json:"ma_7,omitempty"`
	MA30         *float64 `json:"ma_30,omitempty"`
	Volatility   *float64 `json:"volatility,omitempty"`
	BBPosition   *float64 `json:"bb_position,omitempty"`
}

// Fundamentals defaults: PERatio 20, EarningsGrowth 0, InsiderTrades 0.
type Fundamentals struct {
	PERatio        *float64 `json:"pe_ratio,omitempty"`
	EarningsGrowth *float64 `json:"earnings_growth,omitempty"`
	InsiderTrades  *int     `json:"insider_trades,omitempty"`
	MarketCap      *string  `json:"market_cap,omitempty"`
}

// Macro defaults: InterestRate 5, Inflation 3, MarketRegime "neutral".
type Macro struct {
	InterestRate *float64 `json:"interest_rate,omitempty"`
	Inflation    *float64 `json:"inflation,omitempty"`
	MarketRegime *string  `json:"market_regime,omitempty"`
	VIX          *float64 `json:"vix,omitempty"`
}

// Risk defaults: Volatility 20, MaxDrawdown 15, ValueAtRisk 5. All are
// percentages.
type Risk struct {
	Volatility  *float64 `json:"volatility,omitempty"`
	MaxDrawdown *float64 `json:"max_drawdown,omitempty"`
	ValueAtRisk *float64 `json:"value_at_risk,omitempty"`
}

// SentimentScores defaults every score to 0. Scores lie in [-1, 1].
type SentimentScores struct {
	FinBERT       *float64 `json:"finbert,omitempty"`
	Reddit        *float64 `json:"reddit,omitempty"`
	News          *float64 `json:"news,omitempty"`
	Overall       *float64 `json:"overall,omitempty"`
	Label         *string  `json:"label,omitempty"`
	NewsCount     *int     `json:"news_count,omitempty"`
	PositiveRatio *float64 `json:"positive_ratio,omitempty"`
}

// TechnicalsOrDefault returns the section or an empty one.
func (mc *MarketContext) TechnicalsOrDefault() Technicals {
	if mc == nil || mc.Technicals == nil {
		return Technicals{}
	}
	return *mc.Technicals
}

// FundamentalsOrDefault returns the section or an empty one.
func (mc *MarketContext) FundamentalsOrDefault() Fundamentals {
	if mc == nil || mc.Fundamentals == nil {
		return Fundamentals{}
	}
	return *mc.Fundamentals
}

// MacroOrDefault returns the section or an empty one.
func (mc *MarketContext) MacroOrDefault() Macro {
	if mc == nil || mc.Macro == nil {
		return Macro{}
	}
	return *mc.Macro
}

// RiskOrDefault returns the section or an empty one.
func (mc *MarketContext) RiskOrDefault() Risk {
	if mc == nil || mc.Risk == nil {
		return Risk{}
	}
	return *mc.Risk
}

// SentimentOrDefault returns the section or an empty one.
func (mc *MarketContext) SentimentOrDefault() SentimentScores {
	if mc == nil || mc.SentimentScores == nil {
		return SentimentScores{}
	}
	return *mc.SentimentScores
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func stringOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
