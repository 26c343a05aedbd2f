package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tradepro/internal/agents"
	"github.com/ajitpratap0/tradepro/internal/marketctx"
	"github.com/ajitpratap0/tradepro/internal/predictor"
	"github.com/ajitpratap0/tradepro/internal/sentiment"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(writeConfig(t, "app:\n  name: TradePro\n"))
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, "TradePro", cfg.App.Name)
	assert.Equal(t, Version, cfg.App.Version)
	assert.Equal(t, 8000, cfg.API.Port)
	assert.True(t, cfg.API.EnablePredictor)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, "tradepro", cfg.NATS.Prefix)

	assert.Equal(t, agents.DefaultWeights(), cfg.Agents.Weights)
	assert.Equal(t, agents.DefaultTimeout, cfg.Agents.Timeout)
	assert.Equal(t, predictor.DefaultConfig(), cfg.Predictor)
	assert.Equal(t, marketctx.DefaultConfig(), cfg.Context)
	assert.Equal(t, sentiment.DefaultFeeds(), cfg.Sentiment.Feeds)
	assert.Equal(t, 10, cfg.Sentiment.MaxItems)
	assert.Equal(t, time.Minute, cfg.Market.Cache.ShortTTL)
	assert.Equal(t, 50, cfg.Market.Fallback.MinBars)
	assert.Equal(t, uint32(3), cfg.Market.Fallback.Breaker.MinRequests)

	assert.Equal(t, "0.0.0.0:8000", cfg.API.GetAPIAddr())
	assert.Equal(t, agents.DefaultTimeout, cfg.OrchestratorConfig().AgentTimeout)
	assert.Equal(t, "tradepro", cfg.PublisherConfig().Prefix)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
app:
  environment: staging
  log_format: console
api:
  port: 9000
agents:
  timeout: 2s
  weights:
    macro: 2.0
predictor:
  min_bars: 150
  params:
    n_estimators: 40
context:
  horizon: 30
  macro:
    vix: 30
sentiment:
  offline: true
  feeds:
    - name: local
      url: http://localhost/{symbol}.xml
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, 2*time.Second, cfg.Agents.Timeout)
	assert.Equal(t, 2.0, cfg.Agents.Weights.Macro)
	assert.Equal(t, 1.5, cfg.Agents.Weights.Fundamental)
	assert.Equal(t, 150, cfg.Predictor.MinBars)
	assert.Equal(t, 40, cfg.Predictor.Params.NEstimators)
	assert.Equal(t, 0.05, cfg.Predictor.Params.LearningRate)
	assert.Equal(t, 30, cfg.Context.Horizon)
	assert.Equal(t, 30.0, cfg.Context.Macro.VIX)
	assert.Equal(t, 4.5, cfg.Context.Macro.InterestRate)
	assert.True(t, cfg.Sentiment.Offline)
	assert.Equal(t, []sentiment.Feed{{Name: "local", URLTemplate: "http://localhost/{symbol}.xml"}}, cfg.Sentiment.Feeds)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRADEPRO_API_PORT", "9999")
	t.Setenv("TRADEPRO_AGENTS_TIMEOUT", "750ms")
	t.Setenv("TRADEPRO_APP_LOG_LEVEL", "debug")

	cfg := defaultConfig(t)

	assert.Equal(t, 9999, cfg.API.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Agents.Timeout)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "api: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "predictor:\n  train_fraction: 1.5\napi:\n  port: 70000\n"))
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.ElementsMatch(t, []string{"predictor.train_fraction", "api.port"}, verrs.Fields())
	assert.Contains(t, err.Error(), "2 error(s)")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"environment", func(c *Config) { c.App.Environment = "qa" }, "app.environment"},
		{"log level", func(c *Config) { c.App.LogLevel = "loud" }, "app.log_level"},
		{"log format", func(c *Config) { c.App.LogFormat = "xml" }, "app.log_format"},
		{"api port", func(c *Config) { c.API.Port = 0 }, "api.port"},
		{"request timeout", func(c *Config) { c.API.RequestTimeout = 0 }, "api.request_timeout"},
		{"redis host", func(c *Config) { c.Redis.Enabled = true; c.Redis.Host = "" }, "redis.host"},
		{"nats url", func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "http://x" }, "nats.url"},
		{"nats prefix", func(c *Config) { c.NATS.Enabled = true; c.NATS.Prefix = "a b" }, "nats.prefix"},
		{"cache ttl", func(c *Config) { c.Market.Cache.LongTTL = 0 }, "market.cache"},
		{"failure ratio", func(c *Config) { c.Market.Fallback.Breaker.FailureRatio = 2 }, "market.fallback.breaker.failure_ratio"},
		{"retries", func(c *Config) { c.Market.Fallback.Retry.MaxRetries = -1 }, "market.fallback.retry.max_retries"},
		{"min samples", func(c *Config) { c.Predictor.MinSamples = 1 }, "predictor.min_samples"},
		{"params", func(c *Config) { c.Predictor.Params.LearningRate = 0 }, "predictor.params"},
		{"history period", func(c *Config) { c.Predictor.HistoryPeriod = "7w" }, "predictor.history_period"},
		{"fallback clip", func(c *Config) { c.Predictor.FallbackClip = 0 }, "predictor.fallback_clip"},
		{"feed template", func(c *Config) { c.Sentiment.Feeds[0].URLTemplate = "http://x" }, "sentiment.feeds[0]"},
		{"max items", func(c *Config) { c.Sentiment.MaxItems = 0 }, "sentiment.max_items"},
		{"weight", func(c *Config) { c.Agents.Weights.Risk = 0 }, "agents.weights.risk"},
		{"agent timeout", func(c *Config) { c.Agents.Timeout = 0 }, "agents.timeout"},
		{"context horizon", func(c *Config) { c.Context.Horizon = 0 }, "context.horizon"},
		{"risk period", func(c *Config) { c.Context.RiskPeriod = "" }, "context.risk_period"},
		{"metrics port", func(c *Config) { c.Monitoring.PrometheusPort = -1 }, "monitoring.prometheus_port"},
	}

	require.NoError(t, defaultConfig(t).Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, []string{tt.field}, verrs.Fields())
		})
	}
}

func TestDump(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Redis.Password = "hunter2"
	cfg.Market.Binance.SecretKey = "s3cret"

	var buf bytes.Buffer
	require.NoError(t, Dump(cfg, &buf))

	out := buf.String()
	assert.Contains(t, out, "port: 8000")
	assert.Contains(t, out, "timeout: 5s")
	assert.Contains(t, out, "fundamental: 1.5")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "s3cret")
}

func TestInitLoggerWithConfig(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	var buf bytes.Buffer
	logger := InitLoggerWithConfig(LoggerConfig{Level: "WARN", Format: "json", Output: &buf})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	InitLoggerWithConfig(LoggerConfig{Level: "nonsense", Output: &buf})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestValidator(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	ns, err := server.NewServer(&server.Options{Port: -1})
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second))
	t.Cleanup(ns.Shutdown)

	cfg := defaultConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = port
	cfg.NATS.Enabled = true
	cfg.NATS.URL = ns.ClientURL()

	v := NewValidator(cfg, DefaultValidatorOptions())
	require.NoError(t, v.ValidateStartup(context.Background()))

	t.Run("redis down", func(t *testing.T) {
		down := *cfg
		down.Redis.Port = 1
		err := NewValidator(&down, ValidatorOptions{VerifyConnectivity: true, Timeout: time.Second}).ValidateStartup(context.Background())
		assert.ErrorContains(t, err, "redis connectivity check failed")
	})

	t.Run("nats down", func(t *testing.T) {
		down := *cfg
		down.NATS.URL = "nats://127.0.0.1:1"
		err := NewValidator(&down, ValidatorOptions{VerifyConnectivity: true, Timeout: time.Second}).ValidateStartup(context.Background())
		assert.ErrorContains(t, err, "nats connectivity check failed")
	})

	t.Run("connectivity disabled", func(t *testing.T) {
		down := *cfg
		down.Redis.Port = 1
		assert.NoError(t, NewValidator(&down, ValidatorOptions{}).ValidateStartup(context.Background()))
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := *cfg
		bad.API.Port = 0
		var verrs ValidationErrors
		assert.True(t, errors.As(NewValidator(&bad, ValidatorOptions{}).ValidateStartup(context.Background()), &verrs))
	})
}
