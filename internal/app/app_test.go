package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tradepro/internal/config"
	"github.com/ajitpratap0/tradepro/internal/market"
	"github.com/ajitpratap0/tradepro/internal/marketctx"
	"github.com/ajitpratap0/tradepro/internal/ml"
)

func loadConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

const offline = `
market:
  offline: true
sentiment:
  offline: true
`

func TestNew_Offline(t *testing.T) {
	a, err := New(loadConfig(t, offline), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "synthetic", a.Source.Name())
	assert.NotNil(t, a.Predictor)
	assert.NotNil(t, a.Sentiment)
	assert.Nil(t, a.Publisher)
	assert.Nil(t, a.Redis)
	assert.NotNil(t, a.Stream)
	assert.Len(t, a.Orchestrator.Agents(), 5)
	require.NotNil(t, a.MetricsServer())
	assert.Equal(t, "ready", a.MetricsServer().Readiness().Status)

	analysis := a.Analyze(context.Background(), "AAPL")
	assert.Len(t, analysis.IndividualOpinions, 5)
	assert.Equal(t, "AAPL", analysis.Ticker)
}

func TestNew_DisabledFeatures(t *testing.T) {
	a, err := New(loadConfig(t, offline+`
api:
  enable_predictor: false
  enable_sentiment: false
  enable_stream: false
monitoring:
  enable_metrics: false
`), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Predictor)
	assert.Nil(t, a.Sentiment)
	assert.Nil(t, a.Stream)
	assert.Nil(t, a.MetricsServer())

	w := httptest.NewRecorder()
	a.APIServer().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/agent/predict/AAPL", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	a.APIServer().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/agent/analyze/AAPL", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_RedisAndNATS(t *testing.T) {
	mr := miniredis.RunT(t)

	ns, err := server.NewServer(&server.Options{Port: -1})
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second))
	t.Cleanup(ns.Shutdown)

	cfg := loadConfig(t, offline+fmt.Sprintf(`
redis:
  enabled: true
  host: %s
  port: %s
nats:
  enabled: true
  url: %s
`, mr.Host(), mr.Port(), ns.ClientURL()))

	a, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	_, cached := a.Source.(*market.CachedSource)
	assert.True(t, cached)
	require.NotNil(t, a.Redis)
	require.NotNil(t, a.Publisher)

	bars, err := a.Source.Fetch(context.Background(), "AAPL", "1y")
	require.NoError(t, err)
	assert.NotEmpty(t, bars)
	assert.Eventually(t, func() bool { return len(mr.Keys()) > 0 }, 2*time.Second, 10*time.Millisecond)

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer nc.Close()
	sub, err := nc.SubscribeSync("tradepro.analysis.>")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	a.Orchestrator.AnalyzeTicker(context.Background(), "AAPL", marketctx.Mock())
	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "tradepro.analysis.AAPL", msg.Subject)

	assert.NoError(t, a.Close())
}

func TestNew_NATSUnavailable(t *testing.T) {
	a, err := New(loadConfig(t, offline+`
nats:
  enabled: true
  url: nats://127.0.0.1:1
`), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Publisher)

	readiness := a.MetricsServer().Readiness()
	assert.Equal(t, "degraded", readiness.Status)
	assert.False(t, readiness.Components["publisher"])
	assert.True(t, readiness.Components["predictor"])
}

func TestNew_UnavailableRegressorDisablesPredictor(t *testing.T) {
	a, err := newApp(loadConfig(t, offline), ml.UnavailableFactory, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Predictor)
	assert.False(t, a.MetricsServer().Readiness().Components["predictor"])

	w := httptest.NewRecorder()
	a.APIServer().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/agent/predict/AAPL", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	a.APIServer().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/agent/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"predictor_available":false`)

	analysis := a.Analyze(context.Background(), "AAPL")
	assert.Len(t, analysis.IndividualOpinions, 5)
}
