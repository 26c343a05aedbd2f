// Package app wires configuration into the running components shared by
// the API server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ajitpratap0/tradepro/internal/agents"
	"github.com/ajitpratap0/tradepro/internal/api"
	"github.com/ajitpratap0/tradepro/internal/config"
	"github.com/ajitpratap0/tradepro/internal/market"
	"github.com/ajitpratap0/tradepro/internal/marketctx"
	"github.com/ajitpratap0/tradepro/internal/metrics"
	"github.com/ajitpratap0/tradepro/internal/ml"
	"github.com/ajitpratap0/tradepro/internal/orchestrator"
	"github.com/ajitpratap0/tradepro/internal/predictor"
	"github.com/ajitpratap0/tradepro/internal/sentiment"
)

// App holds the wired components. Predictor, Sentiment, Redis, Publisher
// and Stream are nil when disabled.
type App struct {
	Config       *config.Config
	Source       market.Source
	Predictor    *predictor.Predictor
	Sentiment    *sentiment.Service
	Builder      *marketctx.Builder
	Orchestrator *orchestrator.Orchestrator
	Publisher    *orchestrator.NATSPublisher
	Redis        *redis.Client
	Stream       *api.Hub

	stop context.CancelFunc
	log  zerolog.Logger
}

// New builds every component named by cfg.
func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	return newApp(cfg, ml.GBMFactory, log)
}

func newApp(cfg *config.Config, factory ml.Factory, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, log: log.With().Str("component", "app").Logger()}

	a.Source = a.buildSource()

	if cfg.API.EnablePredictor {
		p := predictor.New(a.Source, factory, cfg.Predictor, log)
		if p.Available() {
			a.Predictor = p
		} else {
			a.log.Warn().Msg("Price prediction disabled: regressor unavailable")
		}
	}
	if cfg.API.EnableSentiment {
		a.Sentiment = sentiment.NewService(cfg.Sentiment, log)
	}

	var pred marketctx.Predictor
	if a.Predictor != nil {
		pred = a.Predictor
	}
	var sent sentiment.Provider
	if a.Sentiment != nil {
		sent = a.Sentiment
	}
	a.Builder = marketctx.NewBuilder(pred, sent, cfg.Context, log)

	a.Orchestrator = orchestrator.New(agents.NewSet(cfg.Agents.Weights), cfg.OrchestratorConfig(), log)

	var pubs orchestrator.Publishers
	if cfg.NATS.Enabled {
		pub, err := orchestrator.Connect(cfg.PublisherConfig(), log)
		if err != nil {
			a.log.Warn().Err(err).Msg("Analysis publisher disabled")
		} else {
			a.Publisher = pub
			pubs = append(pubs, pub)
		}
	}
	if cfg.API.EnableStream {
		ctx, cancel := context.WithCancel(context.Background())
		a.stop = cancel
		a.Stream = api.NewHub(log)
		go a.Stream.Run(ctx)
		pubs = append(pubs, a.Stream)
	}
	switch len(pubs) {
	case 0:
	case 1:
		a.Orchestrator.SetPublisher(pubs[0])
	default:
		a.Orchestrator.SetPublisher(pubs)
	}

	a.log.Info().
		Str("source", a.Source.Name()).
		Bool("predictor", a.Predictor != nil).
		Bool("sentiment", a.Sentiment != nil).
		Bool("publisher", a.Publisher != nil).
		Bool("stream", a.Stream != nil).
		Msg("Components wired")
	return a, nil
}

func (a *App) buildSource() market.Source {
	cfg := a.Config
	synthetic := market.NewSyntheticSource()

	var src market.Source = synthetic
	if !cfg.Market.Offline {
		src = market.NewFallbackSource(
			market.NewBinanceSource(cfg.Market.Binance, a.log),
			market.NewYahooSource(cfg.Market.Yahoo, a.log),
			synthetic,
			cfg.Market.Fallback,
			a.log,
		)
	}

	if cfg.Redis.Enabled {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		src = market.NewCachedSource(src, a.Redis, cfg.Market.Cache, a.log)
	}
	return src
}

// Analyze builds the context for ticker and runs the analyst set.
func (a *App) Analyze(ctx context.Context, ticker string) *orchestrator.Analysis {
	return a.Orchestrator.AnalyzeTicker(ctx, ticker, a.Builder.Build(ctx, ticker))
}

// APIServer returns an HTTP server over the wired components.
func (a *App) APIServer() *api.Server {
	deps := api.Deps{
		Analyzer: a.Orchestrator,
		Context:  a.Builder,
		Stream:   a.Stream,
	}
	if a.Predictor != nil {
		deps.Predictor = a.Predictor
	}
	if a.Sentiment != nil {
		deps.Sentiment = a.Sentiment
	}
	return api.NewServer(api.Config{
		Host:           a.Config.API.Host,
		Port:           a.Config.API.Port,
		AllowedOrigins: a.Config.API.AllowedOrigins,
		RequestTimeout: a.Config.API.RequestTimeout,
		Version:        a.Config.App.Version,
	}, deps, a.log)
}

// MetricsServer returns the Prometheus endpoint, or nil when disabled.
func (a *App) MetricsServer() *metrics.Server {
	if !a.Config.Monitoring.EnableMetrics {
		return nil
	}
	return metrics.NewServer(a.Config.Monitoring.PrometheusPort, a.log, a.ReadinessChecks()...)
}

// ReadinessChecks covers every feature enabled in the config. A feature that
// failed to wire reports not ready.
func (a *App) ReadinessChecks() []metrics.ReadinessCheck {
	enabled := a.Config.API
	var checks []metrics.ReadinessCheck
	if enabled.EnablePredictor {
		checks = append(checks, metrics.ReadinessCheck{Name: "predictor", Ready: func() bool { return a.Predictor != nil }})
	}
	if enabled.EnableSentiment {
		checks = append(checks, metrics.ReadinessCheck{Name: "sentiment", Ready: func() bool { return a.Sentiment != nil }})
	}
	if enabled.EnableStream {
		checks = append(checks, metrics.ReadinessCheck{Name: "stream", Ready: func() bool { return a.Stream != nil }})
	}
	if a.Config.NATS.Enabled {
		checks = append(checks, metrics.ReadinessCheck{Name: "publisher", Ready: func() bool {
			return a.Publisher != nil && a.Publisher.Connected()
		}})
	}
	return checks
}

// Close stops the stream hub and releases the NATS and Redis connections.
func (a *App) Close() error {
	if a.stop != nil {
		a.stop()
	}
	var errs []error
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
