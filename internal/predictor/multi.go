package predictor

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/tradepro/internal/features"
	"github.com/ajitpratap0/tradepro/internal/market"
	"github.com/ajitpratap0/tradepro/internal/metrics"
)

// DefaultHorizons are the horizons served when a caller names none.
var DefaultHorizons = []int{1, 7, 30}

// HorizonLabel formats a horizon as a result key, e.g. "7d".
func HorizonLabel(h int) string {
	return strconv.Itoa(h) + "d"
}

// PredictMultiHorizon trains an independent model per horizon and returns
// the forecasts keyed by HorizonLabel. A failing horizon falls back on its
// own; the others are unaffected.
func (p *Predictor) PredictMultiHorizon(ctx context.Context, symbol string, horizons []int) map[string]*PredictionResult {
	if len(horizons) == 0 {
		horizons = DefaultHorizons
	}
	results := make(map[string]*PredictionResult, len(horizons))

	bars, err := p.fetch(ctx, symbol, p.cfg.HistoryPeriod)
	if err == nil && len(bars) < p.cfg.MinBars {
		err = fmt.Errorf("%w: %d bars, need %d", ErrInsufficientData, len(bars), p.cfg.MinBars)
	}
	if err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Multi-horizon prediction failed, using fallback")
		for _, h := range horizons {
			results[HorizonLabel(h)] = p.fallback(symbol, h, bars, err)
			metrics.RecordPrediction(metrics.ProfileMulti, true)
		}
		return results
	}

	table := features.Build(bars)
	price := bars[len(bars)-1].Close
	out := make([]*PredictionResult, len(horizons))

	g := new(errgroup.Group)
	if p.cfg.MaxConcurrency > 0 {
		g.SetLimit(p.cfg.MaxConcurrency)
	}
	for i, h := range horizons {
		i, h := i, h
		g.Go(func() error {
			res, err := p.predictHorizon(symbol, h, table, price)
			if err != nil {
				p.log.Warn().Err(err).Str("symbol", symbol).Int("horizon", h).Msg("Horizon failed, using fallback")
				res = p.fallback(symbol, h, bars, err)
			}
			metrics.RecordPrediction(metrics.ProfileMulti, res.Fallback)
			out[i] = res
			return nil
		})
	}
	_ = g.Wait()

	for i, h := range horizons {
		results[HorizonLabel(h)] = out[i]
	}
	return results
}

func (p *Predictor) predictHorizon(symbol string, horizon int, table *features.Table, price float64) (*PredictionResult, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w: horizon must be positive, got %d", ErrInsufficientData, horizon)
	}
	key := modelKey{market.NormalizeSymbol(symbol), horizon, ProfileMulti}
	model, err := p.ensure(key, table)
	if err != nil {
		return nil, err
	}

	row, _, err := features.LatestDenseRow(table, model.FeatureColumns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInferenceFailure, err)
	}
	ret, err := model.Regressor.Predict(row)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInferenceFailure, err)
	}

	change := ret * 100
	vol7 := latestOr(table, "volatility_7", 0.02)
	return &PredictionResult{
		Symbol:          symbol,
		CurrentPrice:    round(price, 2),
		PredictedPrice:  round(price*(1+ret), 2),
		PredictedChange: round(change, 2),
		HorizonDays:     horizon,
		Confidence:      multiConfidence(vol7, model.TestR2),
		Recommendation:  RecommendationFor(change),
		Technicals: Technicals{
			RSI:          round(latestOr(table, "rsi", 50), 2),
			MACD:         round(latestOr(table, "macd", 0), 4),
			MACDSignal:   round(latestOr(table, "macd_signal", 0), 4),
			Volatility7d: round(vol7*100, 2),
		},
		TopFactors: topFeatures(model.FeatureColumns, model.Regressor.FeatureImportances(), p.cfg.TopFeatures),
		Timestamp:  p.now(),
	}, nil
}
