package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/tradepro/internal/market"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n\n", len(ve)))
	for i, err := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	sb.WriteString("\nPlease fix the above errors and try again.\n")
	return sb.String()
}

// Fields lists the offending keys.
func (ve ValidationErrors) Fields() []string {
	fields := make([]string, len(ve))
	for i, err := range ve {
		fields[i] = err.Field
	}
	return fields
}

// Validate performs comprehensive configuration validation
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateApp()...)
	errors = append(errors, c.validateAPI()...)
	errors = append(errors, c.validateRedis()...)
	errors = append(errors, c.validateNATS()...)
	errors = append(errors, c.validateMarket()...)
	errors = append(errors, c.validatePredictor()...)
	errors = append(errors, c.validateSentiment()...)
	errors = append(errors, c.validateAgents()...)
	errors = append(errors, c.validateContext()...)
	errors = append(errors, c.validateMonitoring()...)

	if len(errors) > 0 {
		return errors
	}

	return nil
}

func (c *Config) validateApp() ValidationErrors {
	var errors ValidationErrors

	if c.App.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "app.name",
			Message: "Application name is required",
		})
	}

	validEnvs := []string{"development", "staging", "production"}
	if !slices.Contains(validEnvs, c.App.Environment) {
		errors = append(errors, ValidationError{
			Field:   "app.environment",
			Message: fmt.Sprintf("Invalid environment '%s'. Must be one of: %v", c.App.Environment, validEnvs),
		})
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.App.LogLevel)); err != nil || c.App.LogLevel == "" {
		errors = append(errors, ValidationError{
			Field:   "app.log_level",
			Message: fmt.Sprintf("Invalid log level '%s' (debug, info, warn, error)", c.App.LogLevel),
		})
	}

	if c.App.LogFormat != "json" && c.App.LogFormat != "console" {
		errors = append(errors, ValidationError{
			Field:   "app.log_format",
			Message: fmt.Sprintf("Invalid log format '%s'. Must be json or console", c.App.LogFormat),
		})
	}

	return errors
}

func validatePort(field string, port int) ValidationErrors {
	if port == 0 {
		return ValidationErrors{{Field: field, Message: "Port is required"}}
	}
	if port < 1 || port > 65535 {
		return ValidationErrors{{Field: field, Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", port)}}
	}
	return nil
}

func (c *Config) validateAPI() ValidationErrors {
	errors := validatePort("api.port", c.API.Port)

	if c.API.RequestTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "api.request_timeout",
			Message: "Request timeout must be positive",
		})
	}

	return errors
}

func (c *Config) validateRedis() ValidationErrors {
	if !c.Redis.Enabled {
		return nil
	}

	var errors ValidationErrors
	if c.Redis.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "redis.host",
			Message: "Redis host is required",
		})
	}
	errors = append(errors, validatePort("redis.port", c.Redis.Port)...)
	return errors
}

func (c *Config) validateNATS() ValidationErrors {
	if !c.NATS.Enabled {
		return nil
	}

	var errors ValidationErrors
	if c.NATS.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "nats.url",
			Message: "NATS URL is required",
		})
	} else if !strings.HasPrefix(c.NATS.URL, "nats://") {
		errors = append(errors, ValidationError{
			Field:   "nats.url",
			Message: "NATS URL must start with 'nats://'",
		})
	}

	if c.NATS.Prefix == "" || strings.ContainsAny(c.NATS.Prefix, " *>") {
		errors = append(errors, ValidationError{
			Field:   "nats.prefix",
			Message: fmt.Sprintf("Invalid subject prefix '%s'", c.NATS.Prefix),
		})
	}

	return errors
}

func (c *Config) validateMarket() ValidationErrors {
	var errors ValidationErrors

	if c.Market.Cache.ShortTTL <= 0 || c.Market.Cache.LongTTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "market.cache",
			Message: "Cache TTLs must be positive",
		})
	}

	if r := c.Market.Fallback.Breaker.FailureRatio; r <= 0 || r > 1 {
		errors = append(errors, ValidationError{
			Field:   "market.fallback.breaker.failure_ratio",
			Message: fmt.Sprintf("Failure ratio %.2f must be in (0, 1]", r),
		})
	}

	if c.Market.Fallback.Retry.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "market.fallback.retry.max_retries",
			Message: "Max retries cannot be negative",
		})
	}

	return errors
}

func (c *Config) validatePredictor() ValidationErrors {
	var errors ValidationErrors
	p := c.Predictor

	if p.TrainFraction <= 0 || p.TrainFraction >= 1 {
		errors = append(errors, ValidationError{
			Field:   "predictor.train_fraction",
			Message: fmt.Sprintf("Train fraction %.2f must be between 0 and 1", p.TrainFraction),
		})
	}

	if p.MinSamples < 2 {
		errors = append(errors, ValidationError{
			Field:   "predictor.min_samples",
			Message: "At least 2 samples are required",
		})
	}

	if p.Params.NEstimators < 1 || p.Params.MaxDepth < 1 || p.Params.LearningRate <= 0 {
		errors = append(errors, ValidationError{
			Field:   "predictor.params",
			Message: "n_estimators, max_depth and learning_rate must be positive",
		})
	}

	if !market.ValidPeriod(p.HistoryPeriod) {
		errors = append(errors, ValidationError{
			Field:   "predictor.history_period",
			Message: fmt.Sprintf("Invalid period '%s'", p.HistoryPeriod),
		})
	}

	if p.FallbackClip <= 0 {
		errors = append(errors, ValidationError{
			Field:   "predictor.fallback_clip",
			Message: "Fallback clip must be positive",
		})
	}

	return errors
}

func (c *Config) validateSentiment() ValidationErrors {
	var errors ValidationErrors

	for i, f := range c.Sentiment.Feeds {
		if f.Name == "" || !strings.Contains(f.URLTemplate, "{symbol}") {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("sentiment.feeds[%d]", i),
				Message: "Feed needs a name and a url containing {symbol}",
			})
		}
	}

	if c.Sentiment.MaxItems < 1 {
		errors = append(errors, ValidationError{
			Field:   "sentiment.max_items",
			Message: "Max items must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateAgents() ValidationErrors {
	var errors ValidationErrors

	w := c.Agents.Weights
	weights := map[string]float64{
		"sentiment":   w.Sentiment,
		"fundamental": w.Fundamental,
		"technical":   w.Technical,
		"macro":       w.Macro,
		"risk":        w.Risk,
	}
	for _, name := range []string{"sentiment", "fundamental", "technical", "macro", "risk"} {
		if weights[name] <= 0 {
			errors = append(errors, ValidationError{
				Field:   "agents.weights." + name,
				Message: fmt.Sprintf("Weight %.2f must be positive", weights[name]),
			})
		}
	}

	if c.Agents.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "agents.timeout",
			Message: "Agent timeout must be positive",
		})
	}

	return errors
}

func (c *Config) validateContext() ValidationErrors {
	var errors ValidationErrors

	if c.Context.Horizon < 1 {
		errors = append(errors, ValidationError{
			Field:   "context.horizon",
			Message: "Horizon must be at least one day",
		})
	}

	if !market.ValidPeriod(c.Context.RiskPeriod) {
		errors = append(errors, ValidationError{
			Field:   "context.risk_period",
			Message: fmt.Sprintf("Invalid period '%s'", c.Context.RiskPeriod),
		})
	}

	return errors
}

func (c *Config) validateMonitoring() ValidationErrors {
	if !c.Monitoring.EnableMetrics {
		return nil
	}
	return validatePort("monitoring.prometheus_port", c.Monitoring.PrometheusPort)
}
