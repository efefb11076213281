// Package features derives comparable per-entrant metrics from a validated race.
package features

import (
	"github.com/yourusername/hkjc-advisor/internal/models"
)

// Default extraction constants.
const (
	// FormDecay is the geometric weight ratio between consecutive past finishes.
	// The most recent finish has weight 1, the one before FormDecay, then FormDecay^2.
	FormDecay = 0.7
	// NeutralFormScore is given to entrants without form history; it equals a second place.
	NeutralFormScore = 0.5
	// ProbabilityWeight is the composite weight of the normalized implied probability.
	ProbabilityWeight = 0.7
	// FormWeight is the composite weight of the form score.
	FormWeight = 0.3
)

// Params holds the tunable extraction parameters
type Params struct {
	FormDecay         float64
	NeutralFormScore  float64
	ProbabilityWeight float64
	FormWeight        float64
}

// DefaultParams returns the documented extraction constants
func DefaultParams() Params {
	return Params{
		FormDecay:         FormDecay,
		NeutralFormScore:  NeutralFormScore,
		ProbabilityWeight: ProbabilityWeight,
		FormWeight:        FormWeight,
	}
}

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithParams overrides the extraction parameters. Invalid values are ignored.
func WithParams(p Params) Option {
	return func(e *Extractor) {
		if p.FormDecay > 0 && p.FormDecay <= 1 {
			e.params.FormDecay = p.FormDecay
		}
		if p.NeutralFormScore >= 0 && p.NeutralFormScore <= 1 {
			e.params.NeutralFormScore = p.NeutralFormScore
		}
		if p.ProbabilityWeight >= 0 && p.FormWeight >= 0 && p.ProbabilityWeight+p.FormWeight > 0 {
			e.params.ProbabilityWeight = p.ProbabilityWeight
			e.params.FormWeight = p.FormWeight
		}
	}
}

// Extractor computes feature vectors. It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	params Params
}

// NewExtractor creates an extractor with the default parameters unless overridden
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{params: DefaultParams()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the parameters in use
func (e *Extractor) Params() Params {
	return e.params
}

// Extract computes a feature vector per eligible entrant using the default parameters
func Extract(record *models.RaceRecord) map[string]models.FeatureVector {
	return NewExtractor().Extract(record)
}

// Extract computes a feature vector per eligible entrant, keyed by entrant id.
// Scratched entrants and entrants without positive odds are left out; when none
// remain the mapping is empty.
func (e *Extractor) Extract(record *models.RaceRecord) map[string]models.FeatureVector {
	vectors := make(map[string]models.FeatureVector)
	if record == nil {
		return vectors
	}

	eligible := make([]*models.Entrant, 0, len(record.Entrants))
	total := 0.0
	for i := range record.Entrants {
		entrant := &record.Entrants[i]
		if !entrant.IsEligible() {
			continue
		}
		raw := entrant.GetImpliedProbability()
		if raw <= 0 {
			continue
		}
		eligible = append(eligible, entrant)
		total += raw
	}
	if total <= 0 {
		return vectors
	}

	for _, entrant := range eligible {
		implied := entrant.GetImpliedProbability() / total
		form := FormScore(entrant.Form, e.params.FormDecay, e.params.NeutralFormScore)
		probComponent := e.params.ProbabilityWeight * implied
		formComponent := e.params.FormWeight * form

		vectors[entrant.ID] = models.FeatureVector{
			EntrantID:            entrant.ID,
			Odds:                 entrant.OddsFloat(),
			ImpliedProbability:   implied,
			FormScore:            form,
			ProbabilityComponent: probComponent,
			FormComponent:        formComponent,
			CompositeScore:       probComponent + formComponent,
		}
	}

	return vectors
}

// FormScore is the decay-weighted average of finish points (1/position), most
// recent first. Empty form yields neutral; non-positive positions are ignored.
func FormScore(form []int, decay, neutral float64) float64 {
	weight := 1.0
	weighted := 0.0
	weights := 0.0
	for _, position := range form {
		if position >= 1 {
			weighted += weight * (1.0 / float64(position))
			weights += weight
		}
		weight *= decay
	}
	if weights == 0 {
		return neutral
	}
	return weighted / weights
}

// ImpliedProbabilitySum returns the sum of normalized probabilities; 1 for any non-empty field
func ImpliedProbabilitySum(vectors map[string]models.FeatureVector) float64 {
	sum := 0.0
	for _, v := range vectors {
		sum += v.ImpliedProbability
	}
	return sum
}
