// Package config loads TradePro configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/tradepro/internal/agents"
	"github.com/ajitpratap0/tradepro/internal/market"
	"github.com/ajitpratap0/tradepro/internal/marketctx"
	"github.com/ajitpratap0/tradepro/internal/orchestrator"
	"github.com/ajitpratap0/tradepro/internal/predictor"
	"github.com/ajitpratap0/tradepro/internal/sentiment"
)

// EnvPrefix prefixes every environment override, e.g. TRADEPRO_API_PORT.
const EnvPrefix = "TRADEPRO"

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" yaml:"app"`
	API        APIConfig        `mapstructure:"api" yaml:"api"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
	NATS       NATSConfig       `mapstructure:"nats" yaml:"nats"`
	Market     MarketConfig     `mapstructure:"market" yaml:"market"`
	Predictor  predictor.Config `mapstructure:"predictor" yaml:"predictor"`
	Sentiment  sentiment.Config `mapstructure:"sentiment" yaml:"sentiment"`
	Agents     AgentsConfig     `mapstructure:"agents" yaml:"agents"`
	Context    marketctx.Config `mapstructure:"context" yaml:"context"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" yaml:"monitoring"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Version     string `mapstructure:"version" yaml:"version"`
	Environment string `mapstructure:"environment" yaml:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat   string `mapstructure:"log_format" yaml:"log_format"` // json or console
}

// APIConfig contains REST API settings
type APIConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	EnablePredictor bool          `mapstructure:"enable_predictor" yaml:"enable_predictor"`
	EnableSentiment bool          `mapstructure:"enable_sentiment" yaml:"enable_sentiment"`
	EnableStream    bool          `mapstructure:"enable_stream" yaml:"enable_stream"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// RedisConfig contains Redis settings for the price history cache.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Password string `mapstructure:"password" yaml:"-"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// NATSConfig contains settings for the analysis feed.
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
	Prefix  string `mapstructure:"prefix" yaml:"prefix"`
}

// MarketConfig configures the price history provider chain.
type MarketConfig struct {
	// Offline serves only the synthetic series.
	Offline  bool                  `mapstructure:"offline" yaml:"offline"`
	Binance  market.BinanceConfig  `mapstructure:"binance" yaml:"binance"`
	Yahoo    market.YahooConfig    `mapstructure:"yahoo" yaml:"yahoo"`
	Cache    market.CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Fallback market.FallbackConfig `mapstructure:"fallback" yaml:"fallback"`
}

// AgentsConfig configures the analyst set and its orchestration.
type AgentsConfig struct {
	Weights agents.Weights `mapstructure:"weights" yaml:"weights"`
	Timeout time.Duration  `mapstructure:"timeout" yaml:"timeout"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	PrometheusPort int  `mapstructure:"prometheus_port" yaml:"prometheus_port"`
	EnableMetrics  bool `mapstructure:"enable_metrics" yaml:"enable_metrics"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "TradePro")
	v.SetDefault("app.version", Version)
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8000)
	v.SetDefault("api.allowed_origins", []string{"*"})
	v.SetDefault("api.enable_predictor", true)
	v.SetDefault("api.enable_sentiment", true)
	v.SetDefault("api.enable_stream", true)
	v.SetDefault("api.request_timeout", 30*time.Second)
	v.SetDefault("api.shutdown_timeout", 10*time.Second)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// NATS defaults
	pub := orchestrator.DefaultPublisherConfig()
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", pub.URL)
	v.SetDefault("nats.prefix", pub.Prefix)

	// Market defaults
	cache := market.DefaultCacheConfig()
	breaker := market.DefaultBreakerSettings()
	retry := market.DefaultRetryConfig()
	v.SetDefault("market.offline", false)
	v.SetDefault("market.binance.quote", "USDT")
	v.SetDefault("market.yahoo.base_url", market.DefaultYahooBaseURL)
	v.SetDefault("market.yahoo.requests_per_sec", 2.0)
	v.SetDefault("market.yahoo.timeout", 10*time.Second)
	v.SetDefault("market.cache.short_ttl", cache.ShortTTL)
	v.SetDefault("market.cache.long_ttl", cache.LongTTL)
	v.SetDefault("market.cache.prefix", cache.Prefix)
	v.SetDefault("market.fallback.min_bars", 50)
	v.SetDefault("market.fallback.breaker.min_requests", breaker.MinRequests)
	v.SetDefault("market.fallback.breaker.failure_ratio", breaker.FailureRatio)
	v.SetDefault("market.fallback.breaker.open_timeout", breaker.OpenTimeout)
	v.SetDefault("market.fallback.breaker.half_open_max_requests", breaker.HalfOpenMaxReqs)
	v.SetDefault("market.fallback.breaker.count_interval", breaker.CountInterval)
	v.SetDefault("market.fallback.retry.max_retries", retry.MaxRetries)
	v.SetDefault("market.fallback.retry.initial_backoff", retry.InitialBackoff)
	v.SetDefault("market.fallback.retry.max_backoff", retry.MaxBackoff)
	v.SetDefault("market.fallback.retry.backoff_factor", retry.BackoffFactor)

	// Predictor defaults
	p := predictor.DefaultConfig()
	v.SetDefault("predictor.min_bars", p.MinBars)
	v.SetDefault("predictor.min_samples", p.MinSamples)
	v.SetDefault("predictor.train_fraction", p.TrainFraction)
	v.SetDefault("predictor.params.n_estimators", p.Params.NEstimators)
	v.SetDefault("predictor.params.learning_rate", p.Params.LearningRate)
	v.SetDefault("predictor.params.max_depth", p.Params.MaxDepth)
	v.SetDefault("predictor.params.num_leaves", p.Params.NumLeaves)
	v.SetDefault("predictor.params.min_samples_leaf", p.Params.MinSamplesLeaf)
	v.SetDefault("predictor.params.max_bins", p.Params.MaxBins)
	v.SetDefault("predictor.multi_base_estimators", p.MultiBaseEstimators)
	v.SetDefault("predictor.multi_per_horizon", p.MultiPerHorizon)
	v.SetDefault("predictor.fallback_jitter", p.FallbackJitter)
	v.SetDefault("predictor.fallback_clip", p.FallbackClip)
	v.SetDefault("predictor.failed_retry_after", p.FailedRetryAfter)
	v.SetDefault("predictor.history_period", p.HistoryPeriod)
	v.SetDefault("predictor.max_concurrency", p.MaxConcurrency)
	v.SetDefault("predictor.top_features", p.TopFeatures)

	// Sentiment defaults
	s := sentiment.DefaultConfig()
	feeds := make([]map[string]interface{}, len(s.Feeds))
	for i, f := range s.Feeds {
		feeds[i] = map[string]interface{}{"name": f.Name, "url": f.URLTemplate}
	}
	v.SetDefault("sentiment.feeds", feeds)
	v.SetDefault("sentiment.max_items", s.MaxItems)
	v.SetDefault("sentiment.requests_per_sec", s.RequestsPerSec)
	v.SetDefault("sentiment.timeout", s.Timeout)
	v.SetDefault("sentiment.offline", false)

	// Agent defaults
	w := agents.DefaultWeights()
	v.SetDefault("agents.weights.sentiment", w.Sentiment)
	v.SetDefault("agents.weights.fundamental", w.Fundamental)
	v.SetDefault("agents.weights.technical", w.Technical)
	v.SetDefault("agents.weights.macro", w.Macro)
	v.SetDefault("agents.weights.risk", w.Risk)
	v.SetDefault("agents.timeout", agents.DefaultTimeout)

	// Context defaults
	c := marketctx.DefaultConfig()
	v.SetDefault("context.horizon", c.Horizon)
	v.SetDefault("context.risk_period", c.RiskPeriod)
	v.SetDefault("context.timeout", c.Timeout)
	v.SetDefault("context.detect_regime", c.DetectRegime)
	v.SetDefault("context.fundamentals.pe_ratio", c.Fundamentals.PERatio)
	v.SetDefault("context.fundamentals.earnings_growth", c.Fundamentals.EarningsGrowth)
	v.SetDefault("context.fundamentals.insider_trades", c.Fundamentals.InsiderTrades)
	v.SetDefault("context.fundamentals.market_cap", c.Fundamentals.MarketCap)
	v.SetDefault("context.macro.interest_rate", c.Macro.InterestRate)
	v.SetDefault("context.macro.inflation", c.Macro.Inflation)
	v.SetDefault("context.macro.market_regime", c.Macro.MarketRegime)
	v.SetDefault("context.macro.vix", c.Macro.VIX)
	v.SetDefault("context.risk.volatility_window", c.Risk.VolatilityWindow)
	v.SetDefault("context.risk.var_confidence", c.Risk.VaRConfidence)
	v.SetDefault("context.risk.risk_free_rate", c.Risk.RiskFreeRate)

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus_port", 9100)
	v.SetDefault("monitoring.enable_metrics", true)
}

// GetRedisAddr returns the Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAPIAddr returns the API server address
func (c *APIConfig) GetAPIAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OrchestratorConfig returns the orchestrator settings.
func (c *Config) OrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{AgentTimeout: c.Agents.Timeout}
}

// PublisherConfig returns the NATS analysis feed settings.
func (c *Config) PublisherConfig() orchestrator.PublisherConfig {
	return orchestrator.PublisherConfig{URL: c.NATS.URL, Prefix: c.NATS.Prefix}
}
