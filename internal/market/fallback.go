package market

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/ajitpratap0/tradepro/internal/metrics"
)

// BreakerSettings configures the per-provider circuit breaker.
type BreakerSettings struct {
	MinRequests     uint32        `mapstructure:"min_requests" yaml:"min_requests"`
	FailureRatio    float64       `mapstructure:"failure_ratio" yaml:"failure_ratio"`
	OpenTimeout     time.Duration `mapstructure:"open_timeout" yaml:"open_timeout"`
	HalfOpenMaxReqs uint32        `mapstructure:"half_open_max_requests" yaml:"half_open_max_requests"`
	CountInterval   time.Duration `mapstructure:"count_interval" yaml:"count_interval"`
}

// DefaultBreakerSettings trips after half of at least 3 calls fail.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MinRequests:     3,
		FailureRatio:    0.5,
		OpenTimeout:     60 * time.Second,
		HalfOpenMaxReqs: 1,
		CountInterval:   60 * time.Second,
	}
}

// FallbackConfig wires the provider chain.
type FallbackConfig struct {
	Breaker BreakerSettings `mapstructure:"breaker" yaml:"breaker"`
	Retry   RetryConfig     `mapstructure:"retry" yaml:"retry"`
	// MinBars below which a provider answer is replaced by synthetic data.
	// Short periods are held to half their expected session count instead.
	MinBars int `mapstructure:"min_bars" yaml:"min_bars"`
}

// FallbackSource routes crypto symbols to one provider and everything else
// to another, guarding each with retry and a circuit breaker. Any failure,
// including an open breaker, is answered with the synthetic series.
type FallbackSource struct {
	crypto    Source
	equity    Source
	synthetic Source
	breakers  map[string]*gobreaker.CircuitBreaker
	cfg       FallbackConfig
	log       zerolog.Logger
}

// NewFallbackSource builds the chain. crypto or equity may be nil, in which
// case those symbols go straight to synthetic.
func NewFallbackSource(crypto, equity, synthetic Source, cfg FallbackConfig, log zerolog.Logger) *FallbackSource {
	if synthetic == nil {
		synthetic = NewSyntheticSource()
	}
	if cfg.MinBars < 1 {
		cfg.MinBars = 1
	}

	f := &FallbackSource{
		crypto:    crypto,
		equity:    equity,
		synthetic: synthetic,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		cfg:       cfg,
		log:       log.With().Str("component", "fallback_source").Logger(),
	}
	for _, src := range []Source{crypto, equity} {
		if src == nil {
			continue
		}
		f.breakers[src.Name()] = newBreaker(src.Name(), cfg.Breaker)
	}
	return f
}

func newBreaker(name string, s BreakerSettings) *gobreaker.CircuitBreaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenMaxReqs,
		Interval:    s.CountInterval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= s.MinRequests && failureRatio >= s.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.SetCircuitBreakerState(name, breakerStateValue(to))
		},
	})
	metrics.SetCircuitBreakerState(name, breakerStateValue(cb.State()))
	return cb
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Name implements Source.
func (f *FallbackSource) Name() string {
	return "fallback"
}

// BreakerState reports the breaker state for a provider name.
func (f *FallbackSource) BreakerState(name string) (gobreaker.State, bool) {
	cb, ok := f.breakers[name]
	if !ok {
		return gobreaker.StateClosed, false
	}
	return cb.State(), true
}

func (f *FallbackSource) route(symbol string) Source {
	if IsCrypto(symbol) {
		return f.crypto
	}
	return f.equity
}

// Fetch implements Source. It only returns an error for an invalid period
// or a cancelled context.
func (f *FallbackSource) Fetch(ctx context.Context, symbol, period string) ([]PriceBar, error) {
	days, err := PeriodDays(period)
	if err != nil {
		return nil, err
	}
	need := f.minBars(days)
	sym := NormalizeSymbol(symbol)

	primary := f.route(sym)
	if primary == nil {
		return f.fallback(ctx, sym, period, fmt.Errorf("no provider configured"))
	}

	bars, err := f.fetchPrimary(ctx, primary, sym, period)
	metrics.RecordSourceRequest(primary.Name(), err)
	if err == nil && len(bars) >= need {
		return bars, nil
	}
	if err == nil {
		err = fmt.Errorf("%s returned %d bars, need %d: %w", primary.Name(), len(bars), need, ErrNoData)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return f.fallback(ctx, sym, period, err)
}

// tradingDaysPerYear approximates exchange sessions; crypto trades more.
const tradingDaysPerYear = 252

// minBars caps MinBars at half the sessions a period can hold.
func (f *FallbackSource) minBars(days int) int {
	expected := days * tradingDaysPerYear / 365
	return max(1, min(f.cfg.MinBars, expected/2))
}

func (f *FallbackSource) fetchPrimary(ctx context.Context, src Source, symbol, period string) ([]PriceBar, error) {
	cb := f.breakers[src.Name()]
	result, err := cb.Execute(func() (interface{}, error) {
		var bars []PriceBar
		err := WithRetry(ctx, f.cfg.Retry, func() error {
			var fetchErr error
			bars, fetchErr = src.Fetch(ctx, symbol, period)
			return fetchErr
		})
		return bars, err
	})
	if err != nil {
		return nil, err
	}
	return result.([]PriceBar), nil
}

func (f *FallbackSource) fallback(ctx context.Context, symbol, period string, cause error) ([]PriceBar, error) {
	f.log.Warn().
		Err(cause).
		Str("symbol", symbol).
		Str("period", period).
		Msg("Market data unavailable, using synthetic series")
	metrics.RecordSyntheticFallback()
	return f.synthetic.Fetch(ctx, symbol, period)
}
