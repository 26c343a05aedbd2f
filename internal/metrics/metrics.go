package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded label values.
const (
	// Prediction outcomes
	OutcomeModel    = "model"
	OutcomeFallback = "fallback"

	// Prediction profiles
	ProfileSingle = "single"
	ProfileMulti  = "multi"

	// Training results
	TrainingSuccess      = "success"
	TrainingInsufficient = "insufficient_data"
	TrainingFailure      = "failure"

	// Agent results
	AgentResultOK      = "ok"
	AgentResultTimeout = "timeout"
	AgentResultError   = "error"
	AgentResultInvalid = "invalid"

	// Market data errors
	SourceErrorTimeout   = "timeout"
	SourceErrorRateLimit = "rate_limit"
	SourceErrorNetwork   = "network"
	SourceErrorNotFound  = "not_found"
	SourceErrorOther     = "other"
)

// NormalizeSourceError maps a market data error to a bounded label.
func NormalizeSourceError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return SourceErrorTimeout
	case strings.Contains(msg, "rate") || strings.Contains(msg, "429") || strings.Contains(msg, "too many"):
		return SourceErrorRateLimit
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network") || strings.Contains(msg, "dial"):
		return SourceErrorNetwork
	case strings.Contains(msg, "not found") || strings.Contains(msg, "404") || strings.Contains(msg, "no data"):
		return SourceErrorNotFound
	default:
		return SourceErrorOther
	}
}

// HTTP Metrics
var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepro_http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradepro_api_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"method", "path", "status"})
)

// Agent Metrics
var (
	AgentOpinions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepro_agent_opinions_total",
		Help: "Agent opinions by agent and direction",
	}, []string{"agent", "direction"})

	AgentResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepro_agent_results_total",
		Help: "Agent run results (ok, timeout, error, invalid)",
	}, []string{"agent", "result"})

	AgentConfidence = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tradepro_agent_confidence",
		Help: "Latest agent confidence (0-100)",
	}, []string{"agent"})

	AgentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradepro_agent_duration_ms",
		Help:    "Agent analysis duration in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
	}, []string{"agent"})
)

// Orchestrator Metrics
var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepro_analyses_total",
		Help: "Synthesized analyses by final direction",
	}, []string{"direction"})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradepro_analysis_duration_ms",
		Help:    "End-to-end ticker analysis latency in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradepro_analysis_publish_failures_total",
		Help: "Analyses that could not be published to NATS",
	})
)

// Predictor Metrics
var (
	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepro_predictions_total",
		Help: "Predictions served by profile and outcome",
	}, []string{"profile", "outcome"})

	TrainingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepro_training_runs_total",
		Help: "Model training runs by profile and result",
	}, []string{"profile", "result"})

	TrainingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradepro_training_duration_ms",
		Help:    "Model training duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"profile"})

	ModelTestR2 = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tradepro_model_test_r2",
		Help: "Held-out R squared of the latest trained model",
	}, []string{"symbol", "horizon", "profile"})
)

// Market Data Metrics
var (
	SourceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepro_market_source_requests_total",
		Help: "Market data fetches by source",
	}, []string{"source"})

	SourceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepro_market_source_errors_total",
		Help: "Market data fetch errors by source and category",
	}, []string{"source", "category"})

	SyntheticFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradepro_market_synthetic_fallbacks_total",
		Help: "Fetches served from the synthetic series",
	})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tradepro_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	RedisOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepro_redis_operations_total",
		Help: "Redis operations by type",
	}, []string{"operation"})

	RedisCacheHitRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradepro_redis_cache_hit_rate",
		Help: "Redis cache hit rate (0.0 to 1.0)",
	})
)

// Errors
var Errors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tradepro_errors_total",
	Help: "Errors by type and component",
}, []string{"type", "component"})

// Helper functions to update metrics

// RecordAPIRequest records an API request with duration
func RecordAPIRequest(method, path, statusCode string, durationMs float64) {
	APIRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationMs)
	HTTPRequests.WithLabelValues(method, path, statusCode).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	Errors.WithLabelValues(errorType, component).Inc()
}

// RecordAgentOpinion records a valid agent opinion
func RecordAgentOpinion(agent, direction string, confidence int) {
	AgentOpinions.WithLabelValues(agent, direction).Inc()
	AgentConfidence.WithLabelValues(agent).Set(float64(confidence))
}

// RecordAgentResult records how an agent run ended
func RecordAgentResult(agent, result string, durationMs float64) {
	AgentResults.WithLabelValues(agent, result).Inc()
	AgentDuration.WithLabelValues(agent).Observe(durationMs)
}

// RecordAnalysis records a synthesized analysis
func RecordAnalysis(direction string, durationMs float64) {
	AnalysesTotal.WithLabelValues(direction).Inc()
	AnalysisDuration.Observe(durationMs)
}

// RecordPublishFailure records a failed analysis publish
func RecordPublishFailure() {
	PublishFailures.Inc()
}

// RecordPrediction records a served prediction
func RecordPrediction(profile string, fallback bool) {
	outcome := OutcomeModel
	if fallback {
		outcome = OutcomeFallback
	}
	Predictions.WithLabelValues(profile, outcome).Inc()
}

// RecordTraining records a training run
func RecordTraining(profile, result string, durationMs float64) {
	TrainingRuns.WithLabelValues(profile, result).Inc()
	TrainingDuration.WithLabelValues(profile).Observe(durationMs)
}

// SetModelTestR2 publishes the held-out score of a trained model
func SetModelTestR2(symbol, horizon, profile string, r2 float64) {
	ModelTestR2.WithLabelValues(symbol, horizon, profile).Set(r2)
}

// RecordSourceRequest records a market data fetch and its error, if any
func RecordSourceRequest(source string, err error) {
	SourceRequests.WithLabelValues(source).Inc()
	if err != nil {
		SourceErrors.WithLabelValues(source, NormalizeSourceError(err)).Inc()
	}
}

// RecordSyntheticFallback records a fetch served from synthetic data
func RecordSyntheticFallback() {
	SyntheticFallbacks.Inc()
}

// SetCircuitBreakerState publishes a breaker state (0 closed, 1 half-open, 2 open)
func SetCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordRedisOperation records a Redis operation
func RecordRedisOperation(operation string) {
	RedisOperations.WithLabelValues(operation).Inc()
}
