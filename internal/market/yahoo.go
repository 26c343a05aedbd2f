package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// YahooConfig configures the chart API client.
type YahooConfig struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DefaultYahooBaseURL is the public chart API host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource serves daily bars from the Yahoo Finance chart API.
type YahooSource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewYahooSource creates a rate-limited chart client.
func NewYahooSource(cfg YahooConfig, log zerolog.Logger) *YahooSource {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultYahooBaseURL
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YahooSource{
		baseURL: strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log.With().Str("component", "yahoo_source").Logger(),
	}
}

// Name implements Source.
func (y *YahooSource) Name() string {
	return "yahoo"
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch implements Source. Bars with any null field are skipped.
func (y *YahooSource) Fetch(ctx context.Context, symbol, period string) ([]PriceBar, error) {
	if _, err := PeriodDays(period); err != nil {
		return nil, err
	}
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	sym := NormalizeSymbol(symbol)
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d",
		y.baseURL, url.PathEscape(sym), url.QueryEscape(strings.ToLower(period)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; tradepro/1.0)")

	y.log.Debug().Str("symbol", sym).Str("period", period).Msg("Fetching chart")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", sym, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo chart %s: status %d", sym, resp.StatusCode)
	}

	var body chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode yahoo chart %s: %w", sym, err)
	}
	if body.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s: %w", sym, body.Chart.Error.Description, ErrNoData)
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: %w", sym, ErrNoData)
	}

	result := body.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, okO := at(quote.Open, i)
		h, okH := at(quote.High, i)
		l, okL := at(quote.Low, i)
		c, okC := at(quote.Close, i)
		v, okV := at(quote.Volume, i)
		if !(okO && okH && okL && okC && okV) {
			continue
		}
		bars = append(bars, PriceBar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    v,
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: %w", sym, ErrNoData)
	}
	return bars, nil
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}
