// Package sentiment scores financial headlines with keyword lists and
// aggregates them per symbol.
package sentiment

import (
	"math"
	"regexp"
	"strings"
)

// Labels
const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
	LabelNeutral  = "NEUTRAL"
)

var positiveWords = wordSet(
	"surge", "jump", "rally", "gain", "rise", "bull", "bullish", "growth",
	"profit", "beat", "exceed", "outperform", "buy", "upgrade", "strong",
	"positive", "optimistic", "recover", "boom", "soar", "climb", "advance",
	"breakthrough", "innovation", "success", "record", "high", "best",
)

var negativeWords = wordSet(
	"crash", "plunge", "fall", "drop", "decline", "bear", "bearish", "loss",
	"miss", "fail", "underperform", "sell", "downgrade", "weak", "negative",
	"pessimistic", "recession", "bust", "sink", "slide", "retreat", "warning",
	"concern", "risk", "fear", "uncertain", "volatile", "worst", "low",
)

var wordPattern = regexp.MustCompile(`\w+`)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// TextScore is the keyword sentiment of one text.
type TextScore struct {
	Score         float64 `json:"score"`
	Label         string  `json:"label"`
	Confidence    float64 `json:"confidence"`
	PositiveWords int     `json:"positive_words"`
	NegativeWords int     `json:"negative_words"`
}

// AnalyzeText counts distinct positive and negative keywords. The score is
// (pos-neg)/(pos+neg) in [-1, 1]; confidence grows 0.1 per keyword from 0.5
// up to 0.95.
func AnalyzeText(text string) TextScore {
	neutral := TextScore{Label: LabelNeutral, Confidence: 0.5}
	if strings.TrimSpace(text) == "" {
		return neutral
	}

	seen := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		seen[w] = struct{}{}
	}

	var pos, neg int
	for w := range seen {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return neutral
	}

	score := float64(pos-neg) / float64(total)
	return TextScore{
		Score:         round(score, 3),
		Label:         labelFor(score, 0.2),
		Confidence:    round(math.Min(0.5+float64(total)*0.1, 0.95), 3),
		PositiveWords: pos,
		NegativeWords: neg,
	}
}

func labelFor(score, threshold float64) string {
	switch {
	case score > threshold:
		return LabelPositive
	case score < -threshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
