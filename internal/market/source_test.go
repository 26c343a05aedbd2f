package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"btc", "BTC-USD"},
		{"BTC/USD", "BTC-USD"},
		{"ethusdt", "ETH-USD"},
		{" sol ", "SOL-USD"},
		{"aapl", "AAPL"},
		{"BRK/B", "BRKB"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSymbol(tt.in))
		})
	}

	assert.True(t, IsCrypto("BTC-USD"))
	assert.False(t, IsCrypto("AAPL"))
	assert.Equal(t, "BTC", BaseAsset("BTC-USD"))
	assert.Equal(t, "AAPL", BaseAsset("aapl"))
}

func TestPeriodDays(t *testing.T) {
	days, err := PeriodDays("1y")
	require.NoError(t, err)
	assert.Equal(t, 365, days)

	days, err = PeriodDays("5D")
	require.NoError(t, err)
	assert.Equal(t, 5, days)

	_, err = PeriodDays("10y")
	assert.True(t, errors.Is(err, ErrInvalidPeriod))
	assert.False(t, ValidPeriod("forever"))
	assert.True(t, ValidPeriod("2y"))
}

func TestSyntheticSourceDeterministic(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)
	src := &SyntheticSource{Seed: 42, Now: func() time.Time { return fixed }}
	ctx := context.Background()

	a, err := src.Fetch(ctx, "AAPL", "1y")
	require.NoError(t, err)
	b, err := src.Fetch(ctx, "AAPL", "5d")
	require.NoError(t, err)

	require.Len(t, a, SyntheticBars)
	assert.Equal(t, a, b)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), a[len(a)-1].Timestamp)

	for i, bar := range a {
		assert.GreaterOrEqual(t, bar.High, bar.Close, "bar %d", i)
		assert.GreaterOrEqual(t, bar.High, bar.Open, "bar %d", i)
		assert.LessOrEqual(t, bar.Low, bar.Close, "bar %d", i)
		assert.LessOrEqual(t, bar.Low, bar.Open, "bar %d", i)
		assert.GreaterOrEqual(t, bar.Volume, 1e6)
		assert.Less(t, bar.Volume, 1e8)
		if i > 0 {
			assert.True(t, bar.Timestamp.After(a[i-1].Timestamp))
		}
	}

	btc, err := src.Fetch(ctx, "BTC/USD", "1y")
	require.NoError(t, err)
	// Same walk, different base level.
	assert.InDelta(t, a[0].Close/180*65000, btc[0].Close, 1e-6)
}

func TestSyntheticSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSyntheticSource().Fetch(ctx, "AAPL", "1y")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBasePrice(t *testing.T) {
	assert.Equal(t, 65000.0, BasePrice("btc"))
	assert.Equal(t, 3500.0, BasePrice("ETH-USD"))
	assert.Equal(t, 420.0, BasePrice("msft"))
	assert.Equal(t, 100.0, BasePrice("XYZ"))
}
