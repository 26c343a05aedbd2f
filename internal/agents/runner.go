package agents

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single agent analysis.
const DefaultTimeout = 5 * time.Second

// TimeoutOpinion is the neutral, zero-confidence opinion substituted for
// an analysis that missed its deadline.
func TimeoutOpinion(a Agent, ticker string) *Opinion {
	return &Opinion{
		AgentName:       a.Name(),
		Ticker:          ticker,
		Timestamp:       time.Now().UTC(),
		Direction:       Neutral,
		Confidence:      0,
		Reasoning:       "Analysis timed out",
		KeyFactors:      []string{"timeout"},
		SuggestedAction: ActionWait,
		Weight:          a.Weight(),
	}
}

type outcome struct {
	opinion *Opinion
	err     error
}

// RunWithTimeout races a.Analyze against timeout. A missed deadline yields
// TimeoutOpinion and a nil error; the abandoned goroutine finishes into a
// buffered channel. Errors and panics from Analyze are returned as errors.
func RunWithTimeout(ctx context.Context, a Agent, ticker string, mc *MarketContext, timeout time.Duration) (*Opinion, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %s: %v", ErrAgentPanic, a.Name(), r)}
			}
		}()
		op, err := a.Analyze(ctx, ticker, mc)
		done <- outcome{opinion: op, err: err}
	}()

	select {
	case out := <-done:
		switch {
		case errors.Is(out.err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded):
			return TimeoutOpinion(a, ticker), nil
		case out.err != nil:
			return nil, fmt.Errorf("%s: %w", a.Name(), out.err)
		case out.opinion == nil:
			return nil, fmt.Errorf("%s: %w: nil", a.Name(), ErrInvalidOpinion)
		}
		return out.opinion, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return TimeoutOpinion(a, ticker), nil
		}
		return nil, fmt.Errorf("%s: %w", a.Name(), ctx.Err())
	}
}
