package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tradepro/internal/agents"
)

type stubAgent struct {
	name   string
	weight float64
	fn     func(ctx context.Context, ticker string) (*agents.Opinion, error)
}

func (s *stubAgent) Name() string      { return s.name }
func (s *stubAgent) Kind() agents.Kind { return agents.KindTechnical }
func (s *stubAgent) Weight() float64   { return s.weight }
func (s *stubAgent) Analyze(ctx context.Context, ticker string, _ *agents.MarketContext) (*agents.Opinion, error) {
	return s.fn(ctx, ticker)
}

func fixedAgent(name string, dir agents.Direction, weight float64, conf int) *stubAgent {
	return &stubAgent{name: name, weight: weight, fn: func(_ context.Context, ticker string) (*agents.Opinion, error) {
		o := op(name, dir, weight, conf, 0.02)
		o.Ticker = ticker
		return o, nil
	}}
}

type capturePublisher struct {
	mu       sync.Mutex
	received []*Analysis
	err      error
}

func (c *capturePublisher) Publish(_ context.Context, a *Analysis) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, a)
	return c.err
}

func TestAnalyzeTicker_DefaultSet(t *testing.T) {
	o := New(agents.NewDefaultSet(), DefaultConfig(), zerolog.Nop())

	a := o.AnalyzeTicker(context.Background(), "AAPL", nil)

	require.Len(t, a.IndividualOpinions, 5)
	names := make([]string, len(a.IndividualOpinions))
	for i, op := range a.IndividualOpinions {
		names[i] = op.AgentName
		assert.NoError(t, op.Validate())
	}
	assert.Equal(t, []string{
		agents.NameSentiment, agents.NameFundamental, agents.NameTechnical, agents.NameMacro, agents.NameRisk,
	}, names)
	assert.Equal(t, Synthesize(a.IndividualOpinions), a.FinalRecommendation)
	assert.Equal(t, DebateSummary(a.IndividualOpinions), a.DebateSummary)
	assert.Equal(t, "AAPL", a.Ticker)
	assert.NotEmpty(t, a.RequestID)
}

func TestAnalyzeTicker_HungAgentContributesTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	hung := &stubAgent{name: "Slow", weight: 1.0, fn: func(context.Context, string) (*agents.Opinion, error) {
		<-release
		return nil, errors.New("late")
	}}
	set := []agents.Agent{
		fixedAgent("Bull", agents.Bullish, 1.2, 80),
		hung,
		fixedAgent("Bear", agents.Bearish, 1.5, 60),
	}
	o := New(set, Config{AgentTimeout: 50 * time.Millisecond}, zerolog.Nop())

	start := time.Now()
	a := o.AnalyzeTicker(context.Background(), "MSFT", nil)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, a.IndividualOpinions, 3)
	timeout := a.IndividualOpinions[1]
	assert.Equal(t, "Slow", timeout.AgentName)
	assert.True(t, timeout.IsTimeout())
	assert.Equal(t, agents.Neutral, timeout.Direction)
	assert.Equal(t, 0, timeout.Confidence)

	rec := a.FinalRecommendation
	assert.Equal(t, agents.Bullish, rec.Direction)
	assert.Equal(t, 52, rec.Confidence)
	assert.Equal(t, 0.0, rec.NeutralScore)
	assert.Equal(t, agents.ActionBuy, rec.SuggestedAction)
	assert.Contains(t, a.DebateSummary, "➖ Slow: NEUTRAL (0%)")
}

func TestAnalyzeTicker_DiscardsFailures(t *testing.T) {
	set := []agents.Agent{
		fixedAgent("Bear", agents.Bearish, 1.0, 70),
		&stubAgent{name: "Broken", weight: 1.0, fn: func(context.Context, string) (*agents.Opinion, error) {
			return nil, errors.New("no data")
		}},
		&stubAgent{name: "Panicky", weight: 1.0, fn: func(context.Context, string) (*agents.Opinion, error) {
			panic("boom")
		}},
		&stubAgent{name: "Invalid", weight: 1.0, fn: func(context.Context, string) (*agents.Opinion, error) {
			return op("Invalid", "sideways", 1.0, 50, 0), nil
		}},
	}
	o := New(set, DefaultConfig(), zerolog.Nop())

	a := o.AnalyzeTicker(context.Background(), "TSLA", nil)

	require.Len(t, a.IndividualOpinions, 1)
	assert.Equal(t, "Bear", a.IndividualOpinions[0].AgentName)
	assert.Equal(t, agents.Bearish, a.FinalRecommendation.Direction)
	assert.Equal(t, 100, a.FinalRecommendation.Confidence)
	assert.Equal(t, agents.ActionWait, a.FinalRecommendation.SuggestedAction)
}

func TestAnalyzeTicker_AllAgentsFail(t *testing.T) {
	set := []agents.Agent{
		&stubAgent{name: "Broken", weight: 1.0, fn: func(context.Context, string) (*agents.Opinion, error) {
			return nil, errors.New("no data")
		}},
	}
	o := New(set, DefaultConfig(), zerolog.Nop())

	a := o.AnalyzeTicker(context.Background(), "TSLA", nil)

	assert.Empty(t, a.IndividualOpinions)
	assert.Equal(t, 50, a.FinalRecommendation.Confidence)
	assert.Equal(t, 5.0, a.FinalRecommendation.SuggestedPositionSize)
	assert.Empty(t, a.DebateSummary)
}

func TestAnalyzeTicker_Publisher(t *testing.T) {
	set := []agents.Agent{fixedAgent("Bull", agents.Bullish, 1.0, 90)}

	t.Run("receives analysis", func(t *testing.T) {
		pub := &capturePublisher{}
		o := New(set, DefaultConfig(), zerolog.Nop())
		o.SetPublisher(pub)

		a := o.AnalyzeTicker(context.Background(), "AAPL", nil)

		require.Len(t, pub.received, 1)
		assert.Same(t, a, pub.received[0])
	})

	t.Run("failure is tolerated", func(t *testing.T) {
		pub := &capturePublisher{err: errors.New("nats down")}
		o := New(set, DefaultConfig(), zerolog.Nop())
		o.SetPublisher(pub)

		a := o.AnalyzeTicker(context.Background(), "AAPL", nil)

		require.NotNil(t, a)
		assert.Len(t, a.IndividualOpinions, 1)
		assert.Len(t, pub.received, 1)
	})
}

func TestPublishers_FanOut(t *testing.T) {
	ok := &capturePublisher{}
	down := &capturePublisher{err: errors.New("hub stopped")}
	also := &capturePublisher{}

	o := New([]agents.Agent{fixedAgent("Bull", agents.Bullish, 1.0, 90)}, DefaultConfig(), zerolog.Nop())
	o.SetPublisher(Publishers{ok, down, also})
	a := o.AnalyzeTicker(context.Background(), "AAPL", nil)

	for _, p := range []*capturePublisher{ok, down, also} {
		require.Len(t, p.received, 1)
		assert.Same(t, a, p.received[0])
	}

	err := Publishers{ok, down, &capturePublisher{err: errors.New("nats down")}}.Publish(context.Background(), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hub stopped")
	assert.Contains(t, err.Error(), "nats down")
	assert.NoError(t, Publishers{}.Publish(context.Background(), a))
}

func TestAnalyzeTicker_Concurrent(t *testing.T) {
	o := New(agents.NewDefaultSet(), DefaultConfig(), zerolog.Nop())

	var wg sync.WaitGroup
	results := make([]*Analysis, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.AnalyzeTicker(context.Background(), "AAPL", nil)
		}()
	}
	wg.Wait()

	for _, a := range results {
		require.Len(t, a.IndividualOpinions, 5)
		assert.Equal(t, results[0].FinalRecommendation, a.FinalRecommendation)
	}
}

func TestNew_DefaultsTimeout(t *testing.T) {
	o := New(nil, Config{}, zerolog.Nop())
	assert.Equal(t, agents.DefaultTimeout, o.cfg.AgentTimeout)
	assert.Empty(t, o.Agents())
}
