package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yourusername/hkjc-advisor/internal/models"
)

// Default recommendation constants.
const (
	// HighConfidenceGap is the composite score lead above which confidence is High.
	HighConfidenceGap = 0.10
	// MediumConfidenceGap is the composite score lead above which confidence is Medium.
	MediumConfidenceGap = 0.04
	// PlacePositions is how many ranked entrants are considered for a place bet.
	PlacePositions = 3
	// MinPlaceProbability is the lowest normalized probability worth a place bet.
	MinPlaceProbability = 0.15
)

const compositeStrategyName = "composite_ranking"

// Thresholds holds the confidence and bet type cut-offs
type Thresholds struct {
	HighGap             float64
	MediumGap           float64
	PlacePositions      int
	MinPlaceProbability float64
}

// DefaultThresholds returns the documented recommendation constants
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighGap:             HighConfidenceGap,
		MediumGap:           MediumConfidenceGap,
		PlacePositions:      PlacePositions,
		MinPlaceProbability: MinPlaceProbability,
	}
}

// BandFor classifies the score gap between the top two entrants
func (t Thresholds) BandFor(gap float64) models.ConfidenceBand {
	switch {
	case gap > t.HighGap:
		return models.ConfidenceHigh
	case gap > t.MediumGap:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// Option applies a configuration option to the CompositeStrategy.
type Option func(*CompositeStrategy)

// WithThresholds overrides the default thresholds. An unordered pair of gaps is ignored.
func WithThresholds(t Thresholds) Option {
	return func(s *CompositeStrategy) {
		if t.HighGap > t.MediumGap && t.MediumGap >= 0 {
			s.thresholds.HighGap = t.HighGap
			s.thresholds.MediumGap = t.MediumGap
		}
		if t.PlacePositions > 0 {
			s.thresholds.PlacePositions = t.PlacePositions
		}
		if t.MinPlaceProbability > 0 && t.MinPlaceProbability <= 1 {
			s.thresholds.MinPlaceProbability = t.MinPlaceProbability
		}
	}
}

// CompositeStrategy selects the entrant with the best composite score.
// It keeps no state between calls.
type CompositeStrategy struct {
	thresholds Thresholds
}

// NewCompositeStrategy creates a new composite ranking strategy
func NewCompositeStrategy(opts ...Option) *CompositeStrategy {
	s := &CompositeStrategy{thresholds: DefaultThresholds()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns strategy name
func (s *CompositeStrategy) Name() string {
	return compositeStrategyName
}

// GetParameters returns strategy parameters for audit logging
func (s *CompositeStrategy) GetParameters() map[string]interface{} {
	return map[string]interface{}{
		"high_confidence_gap":   s.thresholds.HighGap,
		"medium_confidence_gap": s.thresholds.MediumGap,
		"place_positions":       s.thresholds.PlacePositions,
		"min_place_probability": s.thresholds.MinPlaceProbability,
	}
}

// Recommend ranks the entrants and builds the advice for a race.
// An empty feature mapping yields an InsufficientData engine error.
func (s *CompositeStrategy) Recommend(raceID string, features map[string]models.FeatureVector) (*models.BettingAdvice, error) {
	if len(features) == 0 {
		return nil, models.NewEngineError(models.KindInsufficientData, "no eligible entrants to rank", nil)
	}

	ranked := Rank(features)
	top := ranked[0]

	var runnerUp *models.FeatureVector
	gap := 0.0
	band := models.ConfidenceHigh // an unopposed entrant has no rival to be close to
	if len(ranked) > 1 {
		second := ranked[1]
		runnerUp = &second
		gap = top.CompositeScore - second.CompositeScore
		band = s.thresholds.BandFor(gap)
	}

	return &models.BettingAdvice{
		RaceID:     raceID,
		Selection:  top.EntrantID,
		Confidence: band,
		Rationale:  buildRationale(top, runnerUp, gap, band, len(ranked)),
		Rankings:   s.buildRankings(ranked, band),
	}, nil
}

func (s *CompositeStrategy) buildRankings(ranked []models.FeatureVector, band models.ConfidenceBand) []models.RankedEntrant {
	rankings := make([]models.RankedEntrant, len(ranked))
	for i, f := range ranked {
		rankings[i] = models.RankedEntrant{
			Rank:           i + 1,
			EntrantID:      f.EntrantID,
			CompositeScore: f.CompositeScore,
			FairOdds:       f.GetFairOdds(),
			Odds:           f.Odds,
			Recommendation: s.betTypeFor(i, f, band),
		}
	}
	return rankings
}

// betTypeFor backs the selection to win unless confidence is Low, and offers
// place cover on the next ranked entrants that are not outsiders.
func (s *CompositeStrategy) betTypeFor(index int, f models.FeatureVector, band models.ConfidenceBand) models.BetType {
	if index == 0 {
		if band == models.ConfidenceLow {
			return models.BetTypePlace
		}
		return models.BetTypeWin
	}
	if index < s.thresholds.PlacePositions && f.ImpliedProbability >= s.thresholds.MinPlaceProbability {
		return models.BetTypePlace
	}
	return models.BetTypeNoBet
}

func buildRationale(top models.FeatureVector, runnerUp *models.FeatureVector, gap float64, band models.ConfidenceBand, fieldSize int) models.Rationale {
	contributions := []models.RationaleFactor{
		{Name: "implied_probability_contribution", Value: top.ProbabilityComponent},
		{Name: "form_score_contribution", Value: top.FormComponent},
	}
	sort.SliceStable(contributions, func(i, j int) bool {
		return contributions[i].Value > contributions[j].Value
	})

	factors := append(contributions,
		models.RationaleFactor{Name: "implied_probability", Value: top.ImpliedProbability},
		models.RationaleFactor{Name: "form_score", Value: top.FormScore},
		models.RationaleFactor{Name: "composite_score", Value: top.CompositeScore},
		models.RationaleFactor{Name: "score_gap", Value: gap},
	)

	var summary strings.Builder
	fmt.Fprintf(&summary, "%s ranked first of %d with composite score %.4f (implied probability %.4f, form score %.4f)",
		top.EntrantID, fieldSize, top.CompositeScore, top.ImpliedProbability, top.FormScore)
	if runnerUp != nil {
		fmt.Fprintf(&summary, "; leads %s by %.4f", runnerUp.EntrantID, gap)
	}
	fmt.Fprintf(&summary, "; confidence %s", band)

	return models.Rationale{
		Selection: top,
		RunnerUp:  runnerUp,
		ScoreGap:  gap,
		Factors:   factors,
		Summary:   summary.String(),
	}
}
