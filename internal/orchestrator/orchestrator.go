// Package orchestrator runs the analyst set concurrently over one market
// context and merges their opinions by weighted voting.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ajitpratap0/tradepro/internal/agents"
	"github.com/ajitpratap0/tradepro/internal/metrics"
)

// Config holds orchestrator configuration
type Config struct {
	AgentTimeout time.Duration `mapstructure:"agent_timeout" yaml:"agent_timeout"`
}

// DefaultConfig gives every agent five seconds.
func DefaultConfig() Config {
	return Config{AgentTimeout: agents.DefaultTimeout}
}

// Analysis is the result of one AnalyzeTicker call.
type Analysis struct {
	Ticker              string            `json:"ticker"`
	Timestamp           time.Time         `json:"timestamp"`
	RequestID           string            `json:"request_id"`
	IndividualOpinions  []*agents.Opinion `json:"individual_opinions"`
	FinalRecommendation Recommendation    `json:"final_recommendation"`
	DebateSummary       string            `json:"debate_summary"`
}

// Publisher receives every completed analysis.
type Publisher interface {
	Publish(ctx context.Context, a *Analysis) error
}

// Orchestrator coordinates a fixed agent set. It holds no per-request
// state and is safe for concurrent use.
type Orchestrator struct {
	agents    []agents.Agent
	cfg       Config
	publisher Publisher
	log       zerolog.Logger
}

// New creates an orchestrator over set.
func New(set []agents.Agent, cfg Config, log zerolog.Logger) *Orchestrator {
	if cfg.AgentTimeout <= 0 {
		cfg.AgentTimeout = agents.DefaultTimeout
	}
	return &Orchestrator{
		agents: set,
		cfg:    cfg,
		log:    log.With().Str("component", "orchestrator").Logger(),
	}
}

// SetPublisher attaches p; nil disables publishing.
func (o *Orchestrator) SetPublisher(p Publisher) {
	o.publisher = p
}

// Agents returns the configured agent set.
func (o *Orchestrator) Agents() []agents.Agent {
	return o.agents
}

// AnalyzeTicker runs every agent against mc and synthesizes the valid
// opinions. Agent errors, panics and invalid opinions are logged and
// dropped; a timed out agent contributes its neutral substitute.
func (o *Orchestrator) AnalyzeTicker(ctx context.Context, ticker string, mc *agents.MarketContext) *Analysis {
	start := time.Now()
	requestID := uuid.New().String()
	log := o.log.With().Str("request_id", requestID).Str("ticker", ticker).Logger()

	results := make([]*agents.Opinion, len(o.agents))
	var wg sync.WaitGroup
	for i, a := range o.agents {
		i, a := i, a
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.run(ctx, log, a, ticker, mc)
		}()
	}
	wg.Wait()

	opinions := make([]*agents.Opinion, 0, len(results))
	for _, op := range results {
		if op != nil {
			opinions = append(opinions, op)
		}
	}

	analysis := &Analysis{
		Ticker:              ticker,
		Timestamp:           time.Now().UTC(),
		RequestID:           requestID,
		IndividualOpinions:  opinions,
		FinalRecommendation: Synthesize(opinions),
		DebateSummary:       DebateSummary(opinions),
	}

	elapsed := float64(time.Since(start).Milliseconds())
	metrics.RecordAnalysis(string(analysis.FinalRecommendation.Direction), elapsed)
	log.Info().
		Str("direction", string(analysis.FinalRecommendation.Direction)).
		Int("confidence", analysis.FinalRecommendation.Confidence).
		Int("opinions", len(opinions)).
		Float64("duration_ms", elapsed).
		Msg("Analysis complete")

	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, analysis); err != nil {
			metrics.RecordPublishFailure()
			log.Warn().Err(err).Msg("Failed to publish analysis")
		}
	}
	return analysis
}

func (o *Orchestrator) run(ctx context.Context, log zerolog.Logger, a agents.Agent, ticker string, mc *agents.MarketContext) *agents.Opinion {
	start := time.Now()
	op, err := agents.RunWithTimeout(ctx, a, ticker, mc, o.cfg.AgentTimeout)
	elapsed := float64(time.Since(start).Milliseconds())

	if err != nil {
		metrics.RecordAgentResult(a.Name(), metrics.AgentResultError, elapsed)
		event := log.Warn()
		if errors.Is(err, agents.ErrAgentPanic) {
			event = log.Error()
		}
		event.Err(err).Str("agent", a.Name()).Msg("Agent failed, opinion discarded")
		return nil
	}
	if err := op.Validate(); err != nil {
		metrics.RecordAgentResult(a.Name(), metrics.AgentResultInvalid, elapsed)
		log.Warn().Err(err).Str("agent", a.Name()).Msg("Invalid opinion discarded")
		return nil
	}
	if op.IsTimeout() {
		metrics.RecordAgentResult(a.Name(), metrics.AgentResultTimeout, elapsed)
		log.Warn().Err(agents.ErrAgentTimeout).Str("agent", a.Name()).Dur("timeout", o.cfg.AgentTimeout).Msg("Agent timed out, using neutral opinion")
		return op
	}

	metrics.RecordAgentResult(a.Name(), metrics.AgentResultOK, elapsed)
	metrics.RecordAgentOpinion(a.Name(), string(op.Direction), op.Confidence)
	log.Debug().
		Str("agent", a.Name()).
		Str("direction", string(op.Direction)).
		Int("confidence", op.Confidence).
		Msg("Agent opinion")
	return op
}
