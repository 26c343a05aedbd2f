package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2,
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{nil, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("yahoo chart AAPL: status 503"), true},
		{errors.New("<APIError> code=-1003, msg=Too many requests"), true},
		{errors.New("yahoo chart AAPL: status 404"), false},
		{errors.New("invalid symbol"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsRetryable(tt.err), "%v", tt.err)
	}
}

func TestWithRetry(t *testing.T) {
	t.Run("succeeds after transient errors", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), fastRetry(), func() error {
			calls++
			if calls < 3 {
				return errors.New("i/o timeout")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), fastRetry(), func() error {
			calls++
			return errors.New("connection reset by peer")
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "after 3 attempts")
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		permanent := errors.New("bad symbol")
		err := WithRetry(context.Background(), fastRetry(), func() error {
			calls++
			return permanent
		})
		assert.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("respects cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetry(ctx, fastRetry(), func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
