package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeSourceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, ""},
		{"deadline", errors.New("context deadline exceeded"), SourceErrorTimeout},
		{"rate limited", errors.New("status 429 Too Many Requests"), SourceErrorRateLimit},
		{"dial", errors.New("dial tcp: connection refused"), SourceErrorNetwork},
		{"missing symbol", errors.New("no data for symbol"), SourceErrorNotFound},
		{"other", errors.New("boom"), SourceErrorOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSourceError(tt.err))
		})
	}
}

func TestRecordPrediction(t *testing.T) {
	model := Predictions.WithLabelValues(ProfileMulti, OutcomeModel)
	fallback := Predictions.WithLabelValues(ProfileMulti, OutcomeFallback)
	beforeModel := testutil.ToFloat64(model)
	beforeFallback := testutil.ToFloat64(fallback)

	RecordPrediction(ProfileMulti, false)
	RecordPrediction(ProfileMulti, true)
	RecordPrediction(ProfileMulti, true)

	assert.Equal(t, beforeModel+1, testutil.ToFloat64(model))
	assert.Equal(t, beforeFallback+2, testutil.ToFloat64(fallback))
}

func TestRecordSourceRequest(t *testing.T) {
	requests := SourceRequests.WithLabelValues("test_source")
	errs := SourceErrors.WithLabelValues("test_source", SourceErrorTimeout)
	before := testutil.ToFloat64(requests)
	beforeErr := testutil.ToFloat64(errs)

	RecordSourceRequest("test_source", nil)
	RecordSourceRequest("test_source", errors.New("i/o timeout"))

	assert.Equal(t, before+2, testutil.ToFloat64(requests))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(errs))
}

func TestHelpersDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordAPIRequest("GET", "/agent/health", "200", 3)
		RecordError("timeout", "orchestrator")
		RecordAgentOpinion("technical_analyst", "bullish", 80)
		RecordAgentResult("technical_analyst", AgentResultOK, 1.5)
		RecordAnalysis("bullish", 12)
		RecordPublishFailure()
		RecordTraining(ProfileSingle, TrainingSuccess, 250)
		SetModelTestR2("AAPL", "7", ProfileSingle, 0.12)
		RecordSyntheticFallback()
		SetCircuitBreakerState("binance", 2)
		RecordRedisOperation("get")
	})
}
