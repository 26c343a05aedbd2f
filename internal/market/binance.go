package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog"
)

// maxKlines is the Binance page limit for the klines endpoint.
const maxKlines = 1000

// BinanceConfig configures the spot klines client.
type BinanceConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"-"`
	SecretKey string `mapstructure:"secret_key" yaml:"-"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	Quote     string `mapstructure:"quote" yaml:"quote"`
}

// BinanceSource serves crypto daily bars from Binance spot klines.
type BinanceSource struct {
	client *binance.Client
	quote  string
	log    zerolog.Logger
}

// NewBinanceSource creates a klines source. Public market data needs no
// API key.
func NewBinanceSource(cfg BinanceConfig, log zerolog.Logger) *BinanceSource {
	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}
	quote := cfg.Quote
	if quote == "" {
		quote = "USDT"
	}
	return &BinanceSource{
		client: client,
		quote:  quote,
		log:    log.With().Str("component", "binance_source").Logger(),
	}
}

// Name implements Source.
func (b *BinanceSource) Name() string {
	return "binance"
}

// Symbol maps a normalized symbol (BTC-USD) to the exchange pair (BTCUSDT).
func (b *BinanceSource) Symbol(symbol string) string {
	return BaseAsset(NormalizeSymbol(symbol)) + b.quote
}

// Fetch implements Source.
func (b *BinanceSource) Fetch(ctx context.Context, symbol, period string) ([]PriceBar, error) {
	days, err := PeriodDays(period)
	if err != nil {
		return nil, err
	}
	limit := days
	if limit > maxKlines {
		limit = maxKlines
	}

	pair := b.Symbol(symbol)
	b.log.Debug().Str("pair", pair).Int("limit", limit).Msg("Fetching klines")

	klines, err := b.client.NewKlinesService().
		Symbol(pair).
		Interval("1d").
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", pair, err)
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("binance %s: %w", pair, ErrNoData)
	}

	bars := make([]PriceBar, 0, len(klines))
	for _, k := range klines {
		bar, err := klineToBar(k)
		if err != nil {
			return nil, fmt.Errorf("binance %s: %w", pair, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func klineToBar(k *binance.Kline) (PriceBar, error) {
	fields := []string{k.Open, k.High, k.Low, k.Close, k.Volume}
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return PriceBar{}, fmt.Errorf("parse kline value %q: %w", f, err)
		}
		values[i] = v
	}
	return PriceBar{
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}
