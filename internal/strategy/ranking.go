package strategy

import (
	"math"
	"sort"

	"github.com/yourusername/hkjc-advisor/internal/models"
)

// scoreTolerance is the grid composite scores are rounded to before comparison,
// absorbing floating point noise.
const scoreTolerance = 1e-12

// rankedVector pairs a feature vector with its score rounded to the tolerance grid
type rankedVector struct {
	vector models.FeatureVector
	score  int64
}

// Rank orders feature vectors best first: highest composite score, then lowest
// odds, then lowest entrant id. Scores are rounded once to the tolerance grid,
// so the order is total and equal input always ranks identically.
func Rank(features map[string]models.FeatureVector) []models.FeatureVector {
	keyed := make([]rankedVector, 0, len(features))
	for _, f := range features {
		keyed = append(keyed, rankedVector{vector: f, score: gridScore(f.CompositeScore)})
	}
	sort.Slice(keyed, func(i, j int) bool {
		return ranksBefore(keyed[i], keyed[j])
	})

	ranked := make([]models.FeatureVector, len(keyed))
	for i, k := range keyed {
		ranked[i] = k.vector
	}
	return ranked
}

func gridScore(score float64) int64 {
	return int64(math.Round(score / scoreTolerance))
}

func ranksBefore(a, b rankedVector) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.vector.Odds != b.vector.Odds {
		return a.vector.Odds < b.vector.Odds
	}
	return a.vector.EntrantID < b.vector.EntrantID
}
