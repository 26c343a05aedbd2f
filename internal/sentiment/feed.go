package sentiment

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Feed is an RSS source whose URL contains a {symbol} placeholder.
type Feed struct {
	Name        string `mapstructure:"name" yaml:"name"`
	URLTemplate string `mapstructure:"url" yaml:"url"`
}

// DefaultFeeds are the public headline feeds.
func DefaultFeeds() []Feed {
	return []Feed{
		{Name: "yahoo", URLTemplate: "https://feeds.finance.yahoo.com/rss/2.0/headline?s={symbol}&region=US&lang=en-US"},
		{Name: "seeking_alpha", URLTemplate: "https://seekingalpha.com/api/sa/combined/{symbol}.xml"},
	}
}

// DisplayName turns seeking_alpha into "Seeking Alpha".
func (f Feed) DisplayName() string {
	parts := strings.Split(f.Name, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// URL renders the feed URL for symbol.
func (f Feed) URL(symbol string) string {
	return strings.ReplaceAll(f.URLTemplate, "{symbol}", url.QueryEscape(symbol))
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

// FeedClient downloads RSS documents under a shared rate limit.
type FeedClient struct {
	http    *http.Client
	limiter *rate.Limiter
}

// NewFeedClient allows rps requests per second with the given timeout.
func NewFeedClient(rps float64, timeout time.Duration) *FeedClient {
	if rps <= 0 {
		rps = 2
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FeedClient{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Fetch returns up to max items of feed for symbol.
func (c *FeedClient) Fetch(ctx context.Context, feed Feed, symbol string, max int) ([]rssItem, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL(symbol), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; tradepro/1.0)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", feed.Name, resp.StatusCode)
	}

	var doc rssDocument
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", feed.Name, err)
	}

	items := doc.Channel.Items
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return items, nil
}
