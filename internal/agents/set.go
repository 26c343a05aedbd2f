package agents

// Weights are the static voting weights of the five analysts.
type Weights struct {
	Sentiment   float64 `mapstructure:"sentiment" yaml:"sentiment"`
	Fundamental float64 `mapstructure:"fundamental" yaml:"fundamental"`
	Technical   float64 `mapstructure:"technical" yaml:"technical"`
	Macro       float64 `mapstructure:"macro" yaml:"macro"`
	Risk        float64 `mapstructure:"risk" yaml:"risk"`
}

// DefaultWeights favours fundamentals and risk over macro.
func DefaultWeights() Weights {
	return Weights{
		Sentiment:   1.2,
		Fundamental: 1.5,
		Technical:   1.0,
		Macro:       0.8,
		Risk:        1.3,
	}
}

// Display names
const (
	NameSentiment   = "Sentiment Analyst"
	NameFundamental = "Fundamental Analyst"
	NameTechnical   = "Technical Analyst"
	NameMacro       = "Macro Economist"
	NameRisk        = "Risk Manager"
)

// NewSet builds the five analysts in Kinds order.
func NewSet(w Weights) []Agent {
	return []Agent{
		NewSentimentAgent(NameSentiment, w.Sentiment),
		NewFundamentalAgent(NameFundamental, w.Fundamental),
		NewTechnicalAgent(NameTechnical, w.Technical),
		NewMacroAgent(NameMacro, w.Macro),
		NewRiskAgent(NameRisk, w.Risk),
	}
}

// NewDefaultSet builds the analysts with DefaultWeights.
func NewDefaultSet() []Agent {
	return NewSet(DefaultWeights())
}
