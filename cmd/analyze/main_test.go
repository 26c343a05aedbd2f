package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "market:\n  offline: true\nsentiment:\n  offline: true\nmonitoring:\n  enable_metrics: false\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer

	opts, err := parseFlags([]string{"-ticker", "AAPL", "-predict", "-horizons", "1, 7,30"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", opts.ticker)
	assert.True(t, opts.predict)
	assert.Equal(t, []int{1, 7, 30}, opts.horizons)

	_, err = parseFlags([]string{"-horizons", "7"}, &stderr)
	assert.ErrorContains(t, err, "-ticker is required")

	_, err = parseFlags([]string{"-ticker", "AAPL", "-horizons", "1,x"}, &stderr)
	assert.ErrorContains(t, err, "invalid horizon")

	opts, err = parseFlags([]string{"-print-config"}, &stderr)
	require.NoError(t, err)
	assert.True(t, opts.printConfig)
}

func TestRun_PrintConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", offlineConfig(t), "-print-config"}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "offline: true")
	assert.Contains(t, stdout.String(), "weights:")
}

func TestRun_Analyze(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", offlineConfig(t), "-ticker", "aapl"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out struct {
		Ticker              string            `json:"ticker"`
		IndividualOpinions  []json.RawMessage `json:"individual_opinions"`
		FinalRecommendation map[string]any    `json:"final_recommendation"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "AAPL", out.Ticker)
	assert.Len(t, out.IndividualOpinions, 5)
	assert.Contains(t, out.FinalRecommendation, "direction")
}

func TestRun_PredictMulti(t *testing.T) {
	if testing.Short() {
		t.Skip("trains three models")
	}
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", offlineConfig(t), "-ticker", "MSFT", "-predict", "-horizons", "1,7"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out map[string]map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Contains(t, out, "1d")
	assert.Contains(t, out, "7d")
	assert.Equal(t, 7.0, out["7d"]["horizon_days"])
}

func TestRun_BadFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"-nope"}, &stdout, &stderr))
}
