package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Article is one scored headline.
type Article struct {
	Title          string  `json:"title"`
	Source         string  `json:"source"`
	Link           string  `json:"link"`
	Published      string  `json:"published"`
	Sentiment      string  `json:"sentiment"`
	SentimentScore float64 `json:"sentiment_score"`
}

// Aggregate is the mean headline sentiment of a symbol.
type Aggregate struct {
	Symbol           string    `json:"symbol"`
	OverallSentiment string    `json:"overall_sentiment"`
	OverallScore     float64   `json:"overall_score"`
	Confidence       float64   `json:"confidence"`
	ArticleCount     int       `json:"article_count"`
	PositiveCount    int       `json:"positive_count"`
	NegativeCount    int       `json:"negative_count"`
	NeutralCount     int       `json:"neutral_count"`
	Timestamp        time.Time `json:"timestamp"`
}

// PositiveRatio is the share of positive articles.
func (a *Aggregate) PositiveRatio() float64 {
	return float64(a.PositiveCount) / math.Max(float64(a.ArticleCount), 1)
}

// Provider supplies news and aggregate sentiment.
type Provider interface {
	FetchNews(ctx context.Context, symbol string, maxItems int) ([]Article, error)
	AggregateSentiment(ctx context.Context, symbol string) (*Aggregate, error)
}

// Config configures the news service.
type Config struct {
	Feeds          []Feed        `mapstructure:"feeds" yaml:"feeds"`
	MaxItems       int           `mapstructure:"max_items" yaml:"max_items"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Offline skips the network and serves mock headlines.
	Offline bool `mapstructure:"offline" yaml:"offline"`
}

// DefaultConfig reads the public feeds, ten headlines per request.
func DefaultConfig() Config {
	return Config{
		Feeds:          DefaultFeeds(),
		MaxItems:       10,
		RequestsPerSec: 2,
		Timeout:        5 * time.Second,
	}
}

// Service reads headlines from RSS feeds and scores them. When no feed
// yields an article it serves a fixed set of mock headlines.
type Service struct {
	cfg    Config
	client *FeedClient
	log    zerolog.Logger
	now    func() time.Time
}

// NewService creates a news sentiment service.
func NewService(cfg Config, log zerolog.Logger) *Service {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 10
	}
	return &Service{
		cfg:    cfg,
		client: NewFeedClient(cfg.RequestsPerSec, cfg.Timeout),
		log:    log.With().Str("component", "sentiment").Logger(),
		now:    time.Now,
	}
}

// FeedSymbol strips separators and the USD quote: BTC-USD becomes BTC.
func FeedSymbol(symbol string) string {
	s := strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
	return strings.TrimSuffix(s, "-USD")
}

// FetchNews implements Provider. Feeds are read concurrently; a failing
// feed is logged and skipped.
func (s *Service) FetchNews(ctx context.Context, symbol string, maxItems int) ([]Article, error) {
	if maxItems <= 0 {
		maxItems = s.cfg.MaxItems
	}
	if s.cfg.Offline || len(s.cfg.Feeds) == 0 {
		return s.mockNews(symbol), nil
	}

	sym := FeedSymbol(symbol)
	perFeed := make([][]Article, len(s.cfg.Feeds))

	g, gctx := errgroup.WithContext(ctx)
	for i, feed := range s.cfg.Feeds {
		i, feed := i, feed
		g.Go(func() error {
			items, err := s.client.Fetch(gctx, feed, sym, maxItems)
			if err != nil {
				s.log.Warn().Err(err).Str("feed", feed.Name).Str("symbol", sym).Msg("Failed to fetch feed")
				return nil
			}
			articles := make([]Article, 0, len(items))
			for _, item := range items {
				score := AnalyzeText(item.Title)
				articles = append(articles, Article{
					Title:          strings.TrimSpace(item.Title),
					Source:         feed.DisplayName(),
					Link:           strings.TrimSpace(item.Link),
					Published:      item.PubDate,
					Sentiment:      score.Label,
					SentimentScore: score.Score,
				})
			}
			perFeed[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var articles []Article
	for _, a := range perFeed {
		articles = append(articles, a...)
	}
	if len(articles) == 0 {
		s.log.Debug().Str("symbol", sym).Msg("No headlines found, using mock news")
		return s.mockNews(symbol), nil
	}
	if len(articles) > maxItems {
		articles = articles[:maxItems]
	}
	return articles, nil
}

// AggregateSentiment implements Provider.
func (s *Service) AggregateSentiment(ctx context.Context, symbol string) (*Aggregate, error) {
	articles, err := s.FetchNews(ctx, symbol, s.cfg.MaxItems)
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	agg := Summarize(symbol, articles)
	agg.Timestamp = s.now()
	return agg, nil
}

// Summarize averages article scores: above 0.15 is POSITIVE, below -0.15
// NEGATIVE. Confidence is 0.5 plus 0.05 per article, capped at 0.9.
func Summarize(symbol string, articles []Article) *Aggregate {
	agg := &Aggregate{
		Symbol:           symbol,
		OverallSentiment: LabelNeutral,
		Confidence:       0.5,
	}
	if len(articles) == 0 {
		return agg
	}

	var sum float64
	for _, a := range articles {
		sum += a.SentimentScore
		switch a.Sentiment {
		case LabelPositive:
			agg.PositiveCount++
		case LabelNegative:
			agg.NegativeCount++
		default:
			agg.NeutralCount++
		}
	}
	avg := sum / float64(len(articles))

	agg.OverallSentiment = labelFor(avg, 0.15)
	agg.OverallScore = round(avg, 3)
	agg.Confidence = round(math.Min(0.5+float64(len(articles))*0.05, 0.9), 2)
	agg.ArticleCount = len(articles)
	return agg
}

func (s *Service) mockNews(symbol string) []Article {
	headlines := []struct {
		title string
		label string
	}{
		{"%s Shows Strong Momentum as Bulls Take Control", LabelPositive},
		{"Analysts Upgrade %s Price Target Following Earnings Beat", LabelPositive},
		{"%s Faces Headwinds Amid Market Uncertainty", LabelNegative},
		{"Technical Analysis: %s Trading Near Key Support Levels", LabelNeutral},
		{"Institutional Investors Increase %s Holdings", LabelPositive},
	}

	published := s.now().Format(time.RFC3339)
	articles := make([]Article, len(headlines))
	for i, h := range headlines {
		score := 0.0
		switch h.label {
		case LabelPositive:
			score = 0.5
		case LabelNegative:
			score = -0.5
		}
		articles[i] = Article{
			Title:          fmt.Sprintf(h.title, symbol),
			Source:         "Market Analysis",
			Link:           fmt.Sprintf("https://example.com/news/%d", i),
			Published:      published,
			Sentiment:      h.label,
			SentimentScore: score,
		}
	}
	return articles
}
