package models

import (
	"github.com/shopspring/decimal"
)

// RaceConditions describes the declared conditions of a race
type RaceConditions struct {
	Distance   int    `json:"distance,omitempty"`
	Surface    string `json:"surface,omitempty"`
	FieldSize  int    `json:"field_size"`
	Going      string `json:"going,omitempty"`
	Venue      string `json:"venue,omitempty"`
	RaceNumber int    `json:"race_number,omitempty"`
}

// RaceRecord is a validated race. It is built once by the validator and
// treated as read-only afterwards.
type RaceRecord struct {
	RaceID     string         `json:"race_id"`
	Entrants   []Entrant      `json:"entrants"`
	Conditions RaceConditions `json:"conditions"`
	Analysis   *RaceAnalysis  `json:"analysis,omitempty"`
}

// EligibleEntrants returns the entrants that have not been scratched, in record order
func (r *RaceRecord) EligibleEntrants() []Entrant {
	eligible := make([]Entrant, 0, len(r.Entrants))
	for _, e := range r.Entrants {
		if e.IsEligible() {
			eligible = append(eligible, e)
		}
	}
	return eligible
}

// HasEligibleEntrants reports whether at least one entrant can be ranked
func (r *RaceRecord) HasEligibleEntrants() bool {
	for _, e := range r.Entrants {
		if e.IsEligible() {
			return true
		}
	}
	return false
}

// Entrant represents a single runner (horse) in a race
type Entrant struct {
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	Odds      decimal.Decimal `json:"odds"`
	Form      []int           `json:"form"` // finish positions, most recent first
	Scratched bool            `json:"scratched"`
	Weight    *float64        `json:"weight,omitempty"`
}

// IsEligible checks if the entrant takes part in ranking
func (e *Entrant) IsEligible() bool {
	return !e.Scratched
}

// OddsFloat returns the decimal odds as a float64
func (e *Entrant) OddsFloat() float64 {
	f, _ := e.Odds.Float64()
	return f
}

// GetImpliedProbability returns the raw (un-normalized) implied probability
func (e *Entrant) GetImpliedProbability() float64 {
	odds := e.OddsFloat()
	if odds <= 0 {
		return 0
	}
	return 1.0 / odds
}
