package predictor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ajitpratap0/tradepro/internal/market"
)

// Quote is the latest close and its change from the previous bar.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryBar is a chart point.
type HistoryBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// CurrentPrice returns the latest close over the last five days.
func (p *Predictor) CurrentPrice(ctx context.Context, symbol string) (*Quote, error) {
	bars, err := p.fetch(ctx, symbol, "5d")
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, market.ErrNoData)
	}

	last := bars[len(bars)-1].Close
	q := &Quote{Symbol: symbol, Price: round(last, 2), Timestamp: p.now()}
	if len(bars) > 1 {
		if prev := bars[len(bars)-2].Close; prev != 0 {
			q.Change24h = round((last/prev-1)*100, 2)
		}
	}
	return q, nil
}

// History returns the bars of period rounded for charting.
func (p *Predictor) History(ctx context.Context, symbol, period string) ([]HistoryBar, error) {
	if !market.ValidPeriod(period) {
		return nil, fmt.Errorf("%w: %q", market.ErrInvalidPeriod, period)
	}
	bars, err := p.fetch(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryBar, len(bars))
	for i, b := range bars {
		out[i] = HistoryBar{
			Date:   b.Timestamp,
			Open:   round(b.Open, 2),
			High:   round(b.High, 2),
			Low:    round(b.Low, 2),
			Close:  round(b.Close, 2),
			Volume: int64(math.Trunc(b.Volume)),
		}
	}
	return out, nil
}

// Bars returns raw history, for collaborators that compute their own
// statistics.
func (p *Predictor) Bars(ctx context.Context, symbol, period string) ([]market.PriceBar, error) {
	return p.fetch(ctx, symbol, period)
}
