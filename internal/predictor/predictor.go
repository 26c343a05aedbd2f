// Package predictor trains one gradient boosted model per symbol and
// forecast horizon and serves return forecasts, falling back to a momentum
// heuristic whenever a model cannot be used.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ajitpratap0/tradepro/internal/features"
	"github.com/ajitpratap0/tradepro/internal/indicators"
	"github.com/ajitpratap0/tradepro/internal/market"
	"github.com/ajitpratap0/tradepro/internal/metrics"
	"github.com/ajitpratap0/tradepro/internal/ml"
)

var (
	// ErrInsufficientData means too few bars or dense training rows.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrTrainingFailure means the regressor is unavailable or failed to fit.
	ErrTrainingFailure = errors.New("training failed")
	// ErrInferenceFailure means the live features could not be scored.
	ErrInferenceFailure = errors.New("inference failed")
)

// State is the lifecycle of a cached model.
type State string

// States
const (
	StateUntrained State = "UNTRAINED"
	StateTraining  State = "TRAINING"
	StateReady     State = "READY"
	StateFailed    State = "FAILED"
)

// Profile separates single-horizon models from the multi-horizon set.
type Profile string

// Profiles
const (
	ProfileSingle Profile = metrics.ProfileSingle
	ProfileMulti  Profile = metrics.ProfileMulti
)

// Config controls training and fallback behaviour.
type Config struct {
	MinBars       int       `mapstructure:"min_bars" yaml:"min_bars"`
	MinSamples    int       `mapstructure:"min_samples" yaml:"min_samples"`
	TrainFraction float64   `mapstructure:"train_fraction" yaml:"train_fraction"`
	Params        ml.Params `mapstructure:"params" yaml:"params"`
	// Multi-horizon models use MultiBaseEstimators + MultiPerHorizon*h trees.
	MultiBaseEstimators int `mapstructure:"multi_base_estimators" yaml:"multi_base_estimators"`
	MultiPerHorizon     int `mapstructure:"multi_per_horizon" yaml:"multi_per_horizon"`
	// FallbackJitter bounds the deterministic noise added to momentum
	// forecasts, in percent.
	FallbackJitter float64 `mapstructure:"fallback_jitter" yaml:"fallback_jitter"`
	FallbackClip   float64 `mapstructure:"fallback_clip" yaml:"fallback_clip"`
	// FailedRetryAfter re-enables training for a FAILED key. Zero keeps
	// FAILED until an explicit Train.
	FailedRetryAfter time.Duration `mapstructure:"failed_retry_after" yaml:"failed_retry_after"`
	HistoryPeriod    string        `mapstructure:"history_period" yaml:"history_period"`
	MaxConcurrency   int           `mapstructure:"max_concurrency" yaml:"max_concurrency"`
	TopFeatures      int           `mapstructure:"top_features" yaml:"top_features"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinBars:             100,
		MinSamples:          50,
		TrainFraction:       0.8,
		Params:              ml.DefaultParams(),
		MultiBaseEstimators: 150,
		MultiPerHorizon:     5,
		FallbackJitter:      1,
		FallbackClip:        25,
		HistoryPeriod:       market.DefaultPeriod,
		MaxConcurrency:      4,
		TopFeatures:         5,
	}
}

// TrainedModel is a fitted regressor and the feature columns frozen at fit
// time.
type TrainedModel struct {
	Regressor      ml.Regressor
	FeatureColumns []string
	TrainR2        float64
	TestR2         float64
	NSamples       int
	Horizon        int
	Profile        Profile
	TrainedAt      time.Time
}

// TrainResult summarises an explicit training run.
type TrainResult struct {
	Symbol    string  `json:"symbol"`
	Horizon   int     `json:"horizon"`
	Success   bool    `json:"success"`
	TrainR2   float64 `json:"train_r2"`
	TestR2    float64 `json:"test_r2"`
	NSamples  int     `json:"n_samples"`
	NFeatures int     `json:"n_features"`
}

type modelKey struct {
	symbol  string
	horizon int
	profile Profile
}

func (k modelKey) String() string {
	return k.symbol + "|" + strconv.Itoa(k.horizon) + "|" + string(k.profile)
}

type entry struct {
	state    State
	model    *TrainedModel
	err      error
	failedAt time.Time
}

// holdsFailure reports whether e is a FAILED entry that must not be retrained
// yet.
func (p *Predictor) holdsFailure(e *entry) bool {
	if e == nil || e.state != StateFailed {
		return false
	}
	return p.cfg.FailedRetryAfter <= 0 || p.now().Sub(e.failedAt) < p.cfg.FailedRetryAfter
}

// Predictor owns the model cache. Models are trained lazily on the first
// prediction for a key and reused for the life of the process.
type Predictor struct {
	source    market.Source
	factory   ml.Factory
	cfg       Config
	log       zerolog.Logger
	available bool

	mu      sync.RWMutex
	entries map[modelKey]*entry
	group   singleflight.Group

	now func() time.Time
}

// New creates a predictor. An unusable factory is logged once; every
// prediction then takes the fallback path.
func New(source market.Source, factory ml.Factory, cfg Config, log zerolog.Logger) *Predictor {
	p := &Predictor{
		source:  source,
		factory: factory,
		cfg:     cfg,
		log:     log.With().Str("component", "predictor").Logger(),
		entries: make(map[modelKey]*entry),
		now:     time.Now,
	}
	if _, err := factory.New(cfg.Params); err != nil {
		p.log.Warn().Err(err).Msg("Regressor unavailable, predictions will use the momentum fallback")
	} else {
		p.available = true
	}
	return p
}

// Available reports whether the regressor factory can build models.
func (p *Predictor) Available() bool {
	return p.available
}

// Config returns the active configuration.
func (p *Predictor) Config() Config {
	return p.cfg
}

// State returns the single-horizon model state for symbol and horizon.
func (p *Predictor) State(symbol string, horizon int) State {
	return p.state(modelKey{market.NormalizeSymbol(symbol), horizon, ProfileSingle})
}

// MultiState returns the state of the multi-horizon model.
func (p *Predictor) MultiState(symbol string, horizon int) State {
	return p.state(modelKey{market.NormalizeSymbol(symbol), horizon, ProfileMulti})
}

func (p *Predictor) state(key modelKey) State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if e, ok := p.entries[key]; ok {
		return e.state
	}
	return StateUntrained
}

func (p *Predictor) fetch(ctx context.Context, symbol, period string) ([]market.PriceBar, error) {
	bars, err := p.source.Fetch(ctx, market.NormalizeSymbol(symbol), period)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	return bars, nil
}

// Train fetches history and (re)fits the single-horizon model for symbol,
// replacing any cached model.
func (p *Predictor) Train(ctx context.Context, symbol string, horizon int) (*TrainResult, error) {
	bars, err := p.fetch(ctx, symbol, p.cfg.HistoryPeriod)
	if err != nil {
		return nil, err
	}
	if len(bars) < p.cfg.MinBars {
		return nil, fmt.Errorf("%w: %d bars, need %d", ErrInsufficientData, len(bars), p.cfg.MinBars)
	}

	key := modelKey{market.NormalizeSymbol(symbol), horizon, ProfileSingle}
	model, err := p.train(key, features.Build(bars), true)
	if err != nil {
		return nil, err
	}
	return &TrainResult{
		Symbol:    symbol,
		Horizon:   horizon,
		Success:   true,
		TrainR2:   round(model.TrainR2, 4),
		TestR2:    round(model.TestR2, 4),
		NSamples:  model.NSamples,
		NFeatures: len(model.FeatureColumns),
	}, nil
}

// ensure returns the cached model for key, training it on table first if
// needed. A FAILED entry keeps returning its error, see FailedRetryAfter.
func (p *Predictor) ensure(key modelKey, table *features.Table) (*TrainedModel, error) {
	p.mu.RLock()
	e := p.entries[key]
	var (
		model  *TrainedModel
		err    error
		ready  bool
		failed bool
	)
	if e != nil {
		model, err = e.model, e.err
		ready = e.state == StateReady
		failed = p.holdsFailure(e)
	}
	p.mu.RUnlock()

	switch {
	case ready:
		return model, nil
	case failed:
		return nil, err
	}
	return p.train(key, table, false)
}

// train fits key at most once at a time. Concurrent callers share the
// result of the in-flight run.
func (p *Predictor) train(key modelKey, table *features.Table, force bool) (*TrainedModel, error) {
	v, err, _ := p.group.Do(key.String(), func() (interface{}, error) {
		p.mu.Lock()
		if e := p.entries[key]; e != nil && !force {
			if e.state == StateReady {
				p.mu.Unlock()
				return e.model, nil
			}
			if p.holdsFailure(e) {
				p.mu.Unlock()
				return nil, e.err
			}
		}
		p.entries[key] = &entry{state: StateTraining}
		p.mu.Unlock()

		start := time.Now()
		model, err := p.fit(key, table)
		elapsed := float64(time.Since(start).Milliseconds())

		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			p.entries[key] = &entry{state: StateFailed, err: err, failedAt: p.now()}
			result := metrics.TrainingFailure
			if errors.Is(err, ErrInsufficientData) {
				result = metrics.TrainingInsufficient
			}
			metrics.RecordTraining(string(key.profile), result, elapsed)
			p.log.Warn().Err(err).
				Str("symbol", key.symbol).
				Int("horizon", key.horizon).
				Str("profile", string(key.profile)).
				Msg("Model training failed")
			return nil, err
		}

		p.entries[key] = &entry{state: StateReady, model: model}
		metrics.RecordTraining(string(key.profile), metrics.TrainingSuccess, elapsed)
		metrics.SetModelTestR2(key.symbol, strconv.Itoa(key.horizon), string(key.profile), model.TestR2)
		p.log.Info().
			Str("symbol", key.symbol).
			Int("horizon", key.horizon).
			Str("profile", string(key.profile)).
			Int("samples", model.NSamples).
			Int("features", len(model.FeatureColumns)).
			Float64("train_r2", model.TrainR2).
			Float64("test_r2", model.TestR2).
			Msg("Model trained")
		return model, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TrainedModel), nil
}

func (p *Predictor) fit(key modelKey, table *features.Table) (model *TrainedModel, err error) {
	ds, err := features.TrainingSet(table, key.horizon)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientData, err)
	}
	if ds.Len() < p.cfg.MinSamples {
		return nil, fmt.Errorf("%w: %d training samples, need %d", ErrInsufficientData, ds.Len(), p.cfg.MinSamples)
	}
	train, test := ds.Split(p.cfg.TrainFraction)

	params := p.cfg.Params
	if key.profile == ProfileMulti {
		params.NEstimators = p.cfg.MultiBaseEstimators + p.cfg.MultiPerHorizon*key.horizon
	}
	reg, err := p.factory.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrainingFailure, err)
	}

	defer func() {
		if r := recover(); r != nil {
			model, err = nil, fmt.Errorf("%w: panic during fit: %v", ErrTrainingFailure, r)
		}
	}()

	if err := reg.Fit(train.X, train.Y); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrainingFailure, err)
	}
	trainR2, err := ml.Score(reg, train.X, train.Y)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrainingFailure, err)
	}
	testR2, err := ml.Score(reg, test.X, test.Y)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrainingFailure, err)
	}

	return &TrainedModel{
		Regressor:      reg,
		FeatureColumns: ds.Columns,
		TrainR2:        trainR2,
		TestR2:         testR2,
		NSamples:       ds.Len(),
		Horizon:        key.horizon,
		Profile:        key.profile,
		TrainedAt:      p.now(),
	}, nil
}

// Predict forecasts the return over horizon days. It never fails: every
// error is logged and answered with the momentum fallback.
func (p *Predictor) Predict(ctx context.Context, symbol string, horizon int) *PredictionResult {
	res, err := p.predict(ctx, symbol, horizon)
	if err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Int("horizon", horizon).Msg("Prediction failed, using fallback")
		metrics.RecordPrediction(metrics.ProfileSingle, true)
		return p.fallback(symbol, horizon, res.bars, err)
	}
	metrics.RecordPrediction(metrics.ProfileSingle, false)
	return res.PredictionResult
}

// partial carries the bars already fetched into the fallback path.
type partial struct {
	*PredictionResult
	bars []market.PriceBar
}

func (p *Predictor) predict(ctx context.Context, symbol string, horizon int) (partial, error) {
	if horizon < 1 {
		return partial{}, fmt.Errorf("%w: horizon must be positive, got %d", ErrInsufficientData, horizon)
	}
	bars, err := p.fetch(ctx, symbol, p.cfg.HistoryPeriod)
	if err != nil {
		return partial{}, err
	}
	out := partial{bars: bars}
	if len(bars) < p.cfg.MinBars {
		return out, fmt.Errorf("%w: %d bars, need %d", ErrInsufficientData, len(bars), p.cfg.MinBars)
	}

	table := features.Build(bars)
	key := modelKey{market.NormalizeSymbol(symbol), horizon, ProfileSingle}
	model, err := p.ensure(key, table)
	if err != nil {
		return out, err
	}

	row, err := features.LatestRow(table, model.FeatureColumns)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInferenceFailure, err)
	}
	ret, err := model.Regressor.Predict(row)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInferenceFailure, err)
	}

	price := bars[len(bars)-1].Close
	change := ret * 100
	rec := RecommendationFor(change)
	vol7 := latestOr(table, "volatility_7", 0.02)
	rsi := latestOr(table, "rsi", 50)
	hist, _ := table.Column("macd_hist")

	out.PredictionResult = &PredictionResult{
		Symbol:          symbol,
		CurrentPrice:    round(price, 2),
		PredictedPrice:  round(price*(1+ret), 2),
		PredictedChange: round(change, 2),
		HorizonDays:     horizon,
		Confidence:      singleConfidence(vol7, rec),
		Recommendation:  rec,
		Technicals: Technicals{
			RSI:           round(rsi, 2),
			MACD:          round(latestOr(table, "macd", 0), 4),
			MACDSignal:    round(latestOr(table, "macd_signal", 0), 4),
			Volatility7d:  round(vol7*100, 2),
			BBPosition:    ptr(round(latestOr(table, "bb_position", 0.5), 2)),
			MA7:           ptr(round(latestOr(table, "ma_7", price), 2)),
			MA30:          ptr(round(latestOr(table, "ma_30", price), 2)),
			RSISignal:     indicators.RSISignal(rsi),
			MACDCrossover: indicators.MACDCrossover(hist),
		},
		TopFactors: topFeatures(model.FeatureColumns, model.Regressor.FeatureImportances(), p.cfg.TopFeatures),
		Timestamp:  p.now(),
	}
	return out, nil
}

func latestOr(t *features.Table, column string, def float64) float64 {
	v := t.Latest(column)
	if indicators.IsMissing(v) {
		return def
	}
	return v
}
