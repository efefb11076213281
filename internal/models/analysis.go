package models

// RaceAnalysis summarizes the field of a validated race
type RaceAnalysis struct {
	TotalEntrants     int      `json:"total_entrants"`
	EligibleEntrants  int      `json:"eligible_entrants"`
	ScratchedEntrants int      `json:"scratched_entrants"`
	AverageOdds       float64  `json:"average_odds"`
	AverageWeight     *float64 `json:"average_weight,omitempty"`
	Overround         float64  `json:"overround"` // sum of raw implied probabilities
	Surface           string   `json:"surface,omitempty"`
}

// GetBookMargin returns the bookmaker margin as a percentage of the book
func (a *RaceAnalysis) GetBookMargin() float64 {
	if a.Overround == 0 {
		return 0
	}
	return (a.Overround - 1) * 100
}

// HistoricalRace is a past race used for form analysis
type HistoricalRace struct {
	RaceID  string             `json:"race_id" validate:"required"`
	Date    string             `json:"date,omitempty"`
	Results []HistoricalResult `json:"results" validate:"required,dive"`
}

// HistoricalResult is one runner's finishing position in a past race
type HistoricalResult struct {
	EntrantID string `json:"id" validate:"required"`
	Position  int    `json:"position" validate:"gte=1"`
}

// FormHistory summarizes a horse's historical performance
type FormHistory struct {
	HorseID       string  `json:"horse_id"`
	TotalRaces    int     `json:"total_races"`
	AverageFinish float64 `json:"average_finish"`
	WinRate       float64 `json:"win_rate"`
	PlaceRate     float64 `json:"place_rate"`
	RecentForm    []int   `json:"recent_form"` // most recent first
}

// HasHistory checks if any past race included the horse
func (f *FormHistory) HasHistory() bool {
	return f.TotalRaces > 0
}
