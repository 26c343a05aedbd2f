package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, port int) *Server {
	t.Helper()
	server := NewServer(port, zerolog.Nop())
	require.NoError(t, server.Start())
	assert.NotNil(t, server.server)

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, server.Shutdown(ctx))
	})
	return server
}

func TestNewServer(t *testing.T) {
	server := NewServer(9899, zerolog.Nop())

	assert.NotNil(t, server)
	assert.Equal(t, 9899, server.port)
	assert.Nil(t, server.server)
}

func TestHealthEndpoint(t *testing.T) {
	startServer(t, 9897)

	resp, err := http.Get("http://localhost:9897/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	RecordPrediction(ProfileSingle, true)
	startServer(t, 9896)

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/metrics", 9896))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	bodyStr := string(body)
	assert.Contains(t, bodyStr, "# HELP")
	assert.Contains(t, bodyStr, "tradepro_predictions_total")
}

func TestShutdownWithoutStart(t *testing.T) {
	server := NewServer(9894, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))
}

func TestReadyEndpoint(t *testing.T) {
	sentimentUp := true
	tests := []struct {
		name       string
		checks     []ReadinessCheck
		wantStatus int
		wantBody   Readiness
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantBody:   Readiness{Status: "ready", Components: map[string]bool{}},
		},
		{
			name: "all ready",
			checks: []ReadinessCheck{
				{Name: "predictor", Ready: func() bool { return true }},
				{Name: "sentiment", Ready: func() bool { return sentimentUp }},
			},
			wantStatus: http.StatusOK,
			wantBody:   Readiness{Status: "ready", Components: map[string]bool{"predictor": true, "sentiment": true}},
		},
		{
			name: "predictor down",
			checks: []ReadinessCheck{
				{Name: "predictor", Ready: func() bool { return false }},
				{Name: "sentiment", Ready: func() bool { return sentimentUp }},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   Readiness{Status: "degraded", Components: map[string]bool{"predictor": false, "sentiment": true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer(0, zerolog.Nop(), tt.checks...)
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var got Readiness
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}
