package orchestrator

import (
	"fmt"
	"math"
	"strings"

	"github.com/ajitpratap0/tradepro/internal/agents"
)

// defaultPositionSize is used when no opinion suggests a positive size.
const defaultPositionSize = 0.05

// Recommendation is the synthesized call. SuggestedPositionSize is a
// percentage of the portfolio.
type Recommendation struct {
	Direction             agents.Direction `json:"direction"`
	Confidence            int              `json:"confidence"`
	SuggestedAction       string           `json:"suggested_action"`
	SuggestedPositionSize float64          `json:"suggested_position_size"`
	BullishScore          float64          `json:"bullish_score"`
	BearishScore          float64          `json:"bearish_score"`
	NeutralScore          float64          `json:"neutral_score"`
}

// Synthesize merges opinions by weighted vote. Each opinion adds
// weight*confidence/100 to its direction's bucket; the largest bucket wins,
// with ties going to bullish, then bearish, then neutral.
func Synthesize(opinions []*agents.Opinion) Recommendation {
	order := []agents.Direction{agents.Bullish, agents.Bearish, agents.Neutral}
	scores := make(map[agents.Direction]float64, len(order))
	total := 0.0
	var sizeSum float64
	var sizeCount int

	for _, o := range opinions {
		w := o.Weight * float64(o.Confidence) / 100
		scores[o.Direction] += w
		total += w
		if o.SuggestedPositionSize > 0 {
			sizeSum += o.SuggestedPositionSize
			sizeCount++
		}
	}

	winner := order[0]
	for _, d := range order[1:] {
		if scores[d] > scores[winner] {
			winner = d
		}
	}

	confidence := 50
	if total > 0 {
		confidence = int(math.Round(100 * scores[winner] / total))
	}

	size := defaultPositionSize
	if sizeCount > 0 {
		size = sizeSum / float64(sizeCount)
	}

	action := agents.ActionWait
	if winner == agents.Bullish && scores[agents.Bullish] > 0.5 {
		action = agents.ActionBuy
	}

	return Recommendation{
		Direction:             winner,
		Confidence:            confidence,
		SuggestedAction:       action,
		SuggestedPositionSize: round(size*100, 1),
		BullishScore:          round(scores[agents.Bullish], 2),
		BearishScore:          round(scores[agents.Bearish], 2),
		NeutralScore:          round(scores[agents.Neutral], 2),
	}
}

// DebateSummary renders one line per opinion.
func DebateSummary(opinions []*agents.Opinion) string {
	lines := make([]string, len(opinions))
	for i, o := range opinions {
		mark := "➖"
		switch o.Direction {
		case agents.Bullish:
			mark = "📈"
		case agents.Bearish:
			mark = "📉"
		}
		lines[i] = fmt.Sprintf("%s %s: %s (%d%%)", mark, o.AgentName, strings.ToUpper(string(o.Direction)), o.Confidence)
	}
	return strings.Join(lines, "\n")
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
