package models

// ConfidenceBand is the coarse strength of a selection over the runner-up
type ConfidenceBand string

const (
	ConfidenceLow    ConfidenceBand = "Low"
	ConfidenceMedium ConfidenceBand = "Medium"
	ConfidenceHigh   ConfidenceBand = "High"
)

// BetType is the suggested wager for a ranked entrant
type BetType string

const (
	BetTypeWin   BetType = "Win"
	BetTypePlace BetType = "Place"
	BetTypeNoBet BetType = "No Bet"
)

// FeatureVector holds the derived metrics of one eligible entrant
type FeatureVector struct {
	EntrantID            string  `json:"entrant_id"`
	Odds                 float64 `json:"odds"`
	ImpliedProbability   float64 `json:"implied_probability"`
	FormScore            float64 `json:"form_score"`
	ProbabilityComponent float64 `json:"probability_component"`
	FormComponent        float64 `json:"form_component"`
	CompositeScore       float64 `json:"composite_score"`
}

// GetFairOdds returns the decimal odds implied by the normalized probability
func (f *FeatureVector) GetFairOdds() float64 {
	if f.ImpliedProbability <= 0 {
		return 0
	}
	return 1.0 / f.ImpliedProbability
}

// RationaleFactor is a named feature value that drove a selection
type RationaleFactor struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Rationale is the structured explanation of a selection
type Rationale struct {
	Selection FeatureVector     `json:"selection"`
	RunnerUp  *FeatureVector    `json:"runner_up,omitempty"`
	ScoreGap  float64           `json:"score_gap"`
	Factors   []RationaleFactor `json:"factors"`
	Summary   string            `json:"summary"`
}

// RankedEntrant is one eligible entrant in final rank order
type RankedEntrant struct {
	Rank           int     `json:"rank"`
	EntrantID      string  `json:"entrant_id"`
	CompositeScore float64 `json:"composite_score"`
	FairOdds       float64 `json:"fair_odds"`
	Odds           float64 `json:"odds"`
	Recommendation BetType `json:"recommendation"`
}

// BettingAdvice is the recommendation produced for a race
type BettingAdvice struct {
	RaceID     string          `json:"race_id"`
	Selection  string          `json:"selection,omitempty"`
	Confidence ConfidenceBand  `json:"confidence"`
	Rationale  Rationale       `json:"rationale"`
	Rankings   []RankedEntrant `json:"rankings"`
}

// HasSelection checks if the advice names an entrant
func (a *BettingAdvice) HasSelection() bool {
	return a.Selection != ""
}
