package market

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// SyntheticBars is the length of every synthetic series.
const SyntheticBars = 500

var basePrices = map[string]float64{
	"BTC":   65000,
	"ETH":   3500,
	"SOL":   180,
	"AAPL":  180,
	"GOOGL": 140,
	"MSFT":  420,
	"TSLA":  250,
}

// SyntheticSource generates a seeded geometric random walk. The same
// symbol always yields the same prices; only the base level differs
// between symbols.
type SyntheticSource struct {
	Seed int64
	// Now anchors the last bar; defaults to time.Now.
	Now func() time.Time
}

// NewSyntheticSource returns a source seeded with 42.
func NewSyntheticSource() *SyntheticSource {
	return &SyntheticSource{Seed: 42}
}

// Name implements Source.
func (s *SyntheticSource) Name() string {
	return "synthetic"
}

// BasePrice returns the starting level used for symbol.
func BasePrice(symbol string) float64 {
	if p, ok := basePrices[BaseAsset(NormalizeSymbol(symbol))]; ok {
		return p
	}
	return 100
}

// Fetch ignores period and always returns SyntheticBars daily bars.
func (s *SyntheticSource) Fetch(ctx context.Context, symbol, period string) ([]PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	end := now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -(SyntheticBars - 1))

	rng := rand.New(rand.NewSource(s.Seed))
	base := BasePrice(symbol)

	bars := make([]PriceBar, SyntheticBars)
	cum := 0.0
	for i := range bars {
		cum += 0.0005 + 0.02*rng.NormFloat64()
		price := base * math.Exp(cum)
		open := price * (1 + (rng.Float64()*0.02 - 0.01))
		high := math.Max(price, open) * (1 + rng.Float64()*0.03)
		low := math.Min(price, open) * (1 - rng.Float64()*0.03)
		bars[i] = PriceBar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     price,
			Volume:    1e6 + rng.Float64()*(1e8-1e6),
		}
	}
	return bars, nil
}
