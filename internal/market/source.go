// Package market fetches daily OHLCV history from exchanges and quote
// providers, with a deterministic synthetic series as the last resort.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoData means the provider answered but returned no bars.
	ErrNoData = errors.New("no data for symbol")
	// ErrInvalidPeriod is returned for an unknown lookback period.
	ErrInvalidPeriod = errors.New("invalid period")
)

// Source returns daily bars for symbol over a lookback period such as
// "1y". Bars are ordered oldest first.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol, period string) ([]PriceBar, error)
}

// DefaultPeriod is the lookback used for model training.
const DefaultPeriod = "2y"

var periodDays = map[string]int{
	"5d":  5,
	"1mo": 30,
	"3mo": 90,
	"6mo": 180,
	"1y":  365,
	"2y":  730,
	"5y":  1825,
}

// PeriodDays converts a lookback period to calendar days.
func PeriodDays(period string) (int, error) {
	days, ok := periodDays[strings.ToLower(period)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return days, nil
}

// ValidPeriod reports whether period is supported.
func ValidPeriod(period string) bool {
	_, err := PeriodDays(period)
	return err == nil
}

var cryptoAliases = map[string]string{
	"BTC":     "BTC-USD",
	"ETH":     "ETH-USD",
	"SOL":     "SOL-USD",
	"BTCUSD":  "BTC-USD",
	"ETHUSD":  "ETH-USD",
	"SOLUSD":  "SOL-USD",
	"BTCUSDT": "BTC-USD",
	"ETHUSDT": "ETH-USD",
	"SOLUSDT": "SOL-USD",
}

// NormalizeSymbol upper-cases symbol, strips slashes and maps crypto
// aliases (BTC, BTC/USD, BTCUSDT) to the quote-provider form BTC-USD.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "/", "")
	if mapped, ok := cryptoAliases[s]; ok {
		return mapped
	}
	return s
}

// IsCrypto reports whether a normalized symbol is a USD crypto pair.
func IsCrypto(symbol string) bool {
	return strings.HasSuffix(symbol, "-USD")
}

// BaseAsset strips the quote currency: BTC-USD becomes BTC.
func BaseAsset(symbol string) string {
	s := strings.ToUpper(symbol)
	if i := strings.IndexAny(s, "-/"); i > 0 {
		return s[:i]
	}
	return s
}
