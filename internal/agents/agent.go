// Package agents implements the heuristic analysts that each turn a
// market context snapshot into a directional opinion.
package agents

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAgentTimeout marks an analysis that missed its deadline. It never
	// reaches the orchestrator: the runner substitutes a neutral opinion.
	ErrAgentTimeout = errors.New("agent timed out")
	// ErrAgentPanic wraps a recovered panic from Analyze.
	ErrAgentPanic = errors.New("agent panicked")
	// ErrInvalidOpinion is returned by Opinion.Validate.
	ErrInvalidOpinion = errors.New("invalid opinion")
)

// Kind identifies one of the five analyst variants.
type Kind string

// Kinds
const (
	KindSentiment   Kind = "sentiment"
	KindFundamental Kind = "fundamental"
	KindTechnical   Kind = "technical"
	KindMacro       Kind = "macro"
	KindRisk        Kind = "risk"
)

// Kinds lists every variant in evaluation order.
var Kinds = []Kind{KindSentiment, KindFundamental, KindTechnical, KindMacro, KindRisk}

// Direction is an opinion's market call.
type Direction string

// Directions, in synthesis order.
const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// Valid reports whether d is one of the three directions.
func (d Direction) Valid() bool {
	return d == Bullish || d == Bearish || d == Neutral
}

// Suggested actions
const (
	ActionBuy  = "buy"
	ActionWait = "wait"
)

// Opinion is one agent's judgement for a ticker.
type Opinion struct {
	AgentName             string    `json:"agent_name"`
	Ticker                string    `json:"ticker"`
	Timestamp             time.Time `json:"timestamp"`
	Direction             Direction `json:"direction"`
	Confidence            int       `json:"confidence"`
	Reasoning             string    `json:"reasoning"`
	KeyFactors            []string  `json:"key_factors"`
	SuggestedAction       string    `json:"suggested_action"`
	SuggestedPositionSize float64   `json:"suggested_position_size"`
	Weight                float64   `json:"weight"`
}

// Validate checks the opinion's invariants.
func (o *Opinion) Validate() error {
	switch {
	case o == nil:
		return fmt.Errorf("%w: nil", ErrInvalidOpinion)
	case o.AgentName == "":
		return fmt.Errorf("%w: missing agent name", ErrInvalidOpinion)
	case !o.Direction.Valid():
		return fmt.Errorf("%w: direction %q", ErrInvalidOpinion, o.Direction)
	case o.Confidence < 0 || o.Confidence > 100:
		return fmt.Errorf("%w: confidence %d outside [0,100]", ErrInvalidOpinion, o.Confidence)
	case o.SuggestedPositionSize < 0 || o.SuggestedPositionSize > 1:
		return fmt.Errorf("%w: position size %v outside [0,1]", ErrInvalidOpinion, o.SuggestedPositionSize)
	case !(o.Weight > 0):
		return fmt.Errorf("%w: weight %v must be positive", ErrInvalidOpinion, o.Weight)
	}
	return nil
}

// IsTimeout reports whether o was substituted for a timed out analysis.
func (o *Opinion) IsTimeout() bool {
	return o.Confidence == 0 && len(o.KeyFactors) == 1 && o.KeyFactors[0] == "timeout"
}

// Agent evaluates a market context. Implementations hold no state beyond
// their name and weight.
type Agent interface {
	Name() string
	Kind() Kind
	Weight() float64
	Analyze(ctx context.Context, ticker string, mc *MarketContext) (*Opinion, error)
}

// BaseAgent carries the identity shared by every variant.
type BaseAgent struct {
	name   string
	kind   Kind
	weight float64
}

// Name returns the display name.
func (b BaseAgent) Name() string { return b.name }

// Kind returns the variant.
func (b BaseAgent) Kind() Kind { return b.kind }

// Weight returns the static voting weight.
func (b BaseAgent) Weight() float64 { return b.weight }

func (b BaseAgent) opinion(ticker string, dir Direction, confidence int, reasoning string, factors []string, action string, size float64) *Opinion {
	return &Opinion{
		AgentName:             b.name,
		Ticker:                ticker,
		Timestamp:             time.Now().UTC(),
		Direction:             dir,
		Confidence:            clampConfidence(confidence),
		Reasoning:             reasoning,
		KeyFactors:            factors,
		SuggestedAction:       action,
		SuggestedPositionSize: size,
		Weight:                b.weight,
	}
}

// directionFor maps a three-signal score to a direction.
func directionFor(score int) Direction {
	switch {
	case score >= 2:
		return Bullish
	case score <= -1:
		return Bearish
	default:
		return Neutral
	}
}

// scoredConfidence is shared by the fundamental and technical analysts.
func scoredConfidence(score int, dir Direction) int {
	switch dir {
	case Bullish:
		return 70 + score*5
	case Bearish:
		return 60 + abs(score)*10
	default:
		return 40
	}
}

func actionFor(dir Direction, confidence int) string {
	if dir == Bullish && confidence > 70 {
		return ActionBuy
	}
	return ActionWait
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
