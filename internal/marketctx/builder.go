// Package marketctx assembles the market context snapshot handed to the
// analyst set from the predictor, the news sentiment service and price
// history risk statistics.
package marketctx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/tradepro/internal/agents"
	"github.com/ajitpratap0/tradepro/internal/market"
	"github.com/ajitpratap0/tradepro/internal/predictor"
	"github.com/ajitpratap0/tradepro/internal/risk"
	"github.com/ajitpratap0/tradepro/internal/sentiment"
)

// Predictor is the subset of *predictor.Predictor the builder needs.
type Predictor interface {
	Predict(ctx context.Context, symbol string, horizon int) *predictor.PredictionResult
	Bars(ctx context.Context, symbol, period string) ([]market.PriceBar, error)
}

// FundamentalsConfig holds the static company figures.
type FundamentalsConfig struct {
	PERatio        float64 `mapstructure:"pe_ratio" yaml:"pe_ratio"`
	EarningsGrowth float64 `mapstructure:"earnings_growth" yaml:"earnings_growth"`
	InsiderTrades  int     `mapstructure:"insider_trades" yaml:"insider_trades"`
	MarketCap      string  `mapstructure:"market_cap" yaml:"market_cap"`
}

// MacroConfig holds the static economy figures.
type MacroConfig struct {
	InterestRate float64 `mapstructure:"interest_rate" yaml:"interest_rate"`
	Inflation    float64 `mapstructure:"inflation" yaml:"inflation"`
	MarketRegime string  `mapstructure:"market_regime" yaml:"market_regime"`
	VIX          float64 `mapstructure:"vix" yaml:"vix"`
}

// Config configures a Builder.
type Config struct {
	Horizon      int                `mapstructure:"horizon" yaml:"horizon"`
	RiskPeriod   string             `mapstructure:"risk_period" yaml:"risk_period"`
	Timeout      time.Duration      `mapstructure:"timeout" yaml:"timeout"`
	DetectRegime bool               `mapstructure:"detect_regime" yaml:"detect_regime"`
	Fundamentals FundamentalsConfig `mapstructure:"fundamentals" yaml:"fundamentals"`
	Macro        MacroConfig        `mapstructure:"macro" yaml:"macro"`
	Risk         risk.Config        `mapstructure:"risk" yaml:"risk"`
}

// DefaultConfig predicts a week ahead and measures risk over one year.
func DefaultConfig() Config {
	return Config{
		Horizon:      7,
		RiskPeriod:   "1y",
		Timeout:      20 * time.Second,
		DetectRegime: true,
		Fundamentals: FundamentalsConfig{
			PERatio:        18.5,
			EarningsGrowth: 12.3,
			InsiderTrades:  5,
			MarketCap:      "Large",
		},
		Macro: MacroConfig{
			InterestRate: 4.5,
			Inflation:    3.2,
			MarketRegime: "neutral",
			VIX:          15.5,
		},
		Risk: risk.DefaultConfig(),
	}
}

// Builder assembles market contexts. Either collaborator may be nil, in
// which case its sections are left empty and agents use their defaults.
type Builder struct {
	predictor Predictor
	sentiment sentiment.Provider
	cfg       Config
	log       zerolog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(p Predictor, s sentiment.Provider, cfg Config, log zerolog.Logger) *Builder {
	if cfg.Horizon <= 0 {
		cfg.Horizon = 7
	}
	if !market.ValidPeriod(cfg.RiskPeriod) {
		cfg.RiskPeriod = "1y"
	}
	return &Builder{
		predictor: p,
		sentiment: s,
		cfg:       cfg,
		log:       log.With().Str("component", "context_builder").Logger(),
	}
}

// Build never fails: if assembly errors the mock context is returned.
func (b *Builder) Build(ctx context.Context, ticker string) *agents.MarketContext {
	mc, err := b.build(ctx, ticker)
	if err != nil {
		b.log.Error().Err(err).Str("ticker", ticker).Msg("Error building context, using mock data")
		return Mock()
	}
	return mc
}

func (b *Builder) build(ctx context.Context, ticker string) (*agents.MarketContext, error) {
	symbol := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(ticker), "/", ""))
	if symbol == "" {
		return nil, fmt.Errorf("empty ticker")
	}
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	var (
		pred    *predictor.PredictionResult
		agg     *sentiment.Aggregate
		profile *risk.Profile
	)

	g, gctx := errgroup.WithContext(ctx)
	if b.predictor != nil {
		g.Go(func() error {
			pred = b.predictor.Predict(gctx, symbol, b.cfg.Horizon)
			return nil
		})
		g.Go(func() error {
			bars, err := b.predictor.Bars(gctx, symbol, b.cfg.RiskPeriod)
			if err == nil {
				profile, err = risk.Analyze(market.Closes(bars), b.cfg.Risk)
			}
			if err != nil {
				b.log.Warn().Err(err).Str("symbol", symbol).Msg("Risk statistics unavailable, deriving from prediction")
			}
			return nil
		})
	}
	if b.sentiment != nil {
		g.Go(func() error {
			a, err := b.sentiment.AggregateSentiment(gctx, symbol)
			if err != nil {
				return fmt.Errorf("sentiment: %w", err)
			}
			agg = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mc := &agents.MarketContext{
		Fundamentals: b.fundamentals(),
		Macro:        b.macro(profile),
	}
	if pred != nil {
		mc.Prediction = pred
		mc.Technicals = technicals(pred)
		mc.Risk = riskSection(pred, profile)
	}
	if agg != nil {
		mc.SentimentScores = sentimentScores(agg)
	}

	b.log.Debug().
		Str("symbol", symbol).
		Bool("prediction", pred != nil).
		Bool("risk_profile", profile != nil).
		Bool("sentiment", agg != nil).
		Msg("Market context built")
	return mc, nil
}

func (b *Builder) fundamentals() *agents.Fundamentals {
	f := b.cfg.Fundamentals
	return &agents.Fundamentals{
		PERatio:        agents.Float(f.PERatio),
		EarningsGrowth: agents.Float(f.EarningsGrowth),
		InsiderTrades:  agents.Int(f.InsiderTrades),
		MarketCap:      agents.String(f.MarketCap),
	}
}

func (b *Builder) macro(profile *risk.Profile) *agents.Macro {
	m := b.cfg.Macro
	regime := m.MarketRegime
	if b.cfg.DetectRegime && profile != nil {
		regime = risk.MacroRegime(profile.Regime)
	}
	return &agents.Macro{
		InterestRate: agents.Float(m.InterestRate),
		Inflation:    agents.Float(m.Inflation),
		MarketRegime: agents.String(regime),
		VIX:          agents.Float(m.VIX),
	}
}

func technicals(p *predictor.PredictionResult) *agents.Technicals {
	t := p.Technicals
	ma30 := deref(t.MA30, 0)
	return &agents.Technicals{
		RSI:          agents.Float(t.RSI),
		MACD:         agents.Float(t.MACD),
		MACDSignal:   agents.Float(t.MACDSignal),
		MovingAvg:    agents.Float(ma30),
		CurrentPrice: agents.Float(p.CurrentPrice),
		MA7:          agents.Float(deref(t.MA7, 0)),
		MA30:         agents.Float(ma30),
		Volatility:   agents.Float(t.Volatility7d),
		BBPosition:   agents.Float(deref(t.BBPosition, 0.5)),
	}
}

// riskSection prefers the history profile. Without one it derives
// volatility from the prediction and assumes a 15% drawdown.
func riskSection(p *predictor.PredictionResult, profile *risk.Profile) *agents.Risk {
	if profile != nil {
		return &agents.Risk{
			Volatility:  agents.Float(round(profile.VolatilityPct, 2)),
			MaxDrawdown: agents.Float(round(profile.MaxDrawdownPct, 2)),
			ValueAtRisk: agents.Float(round(profile.VaRPct, 2)),
		}
	}
	vol := p.Technicals.Volatility7d
	return &agents.Risk{
		Volatility:  agents.Float(vol),
		MaxDrawdown: agents.Float(15.0),
		ValueAtRisk: agents.Float(vol * 2),
	}
}

func sentimentScores(a *sentiment.Aggregate) *agents.SentimentScores {
	return &agents.SentimentScores{
		FinBERT:       agents.Float(a.OverallScore),
		News:          agents.Float(a.OverallScore),
		Overall:       agents.Float(a.OverallScore),
		Label:         agents.String(a.OverallSentiment),
		NewsCount:     agents.Int(a.ArticleCount),
		PositiveRatio: agents.Float(a.PositiveRatio()),
	}
}

func deref(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
