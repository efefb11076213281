package strategy

import (
	"github.com/yourusername/hkjc-advisor/internal/models"
)

// Recommender turns per-entrant features into betting advice
type Recommender interface {
	Name() string
	Recommend(raceID string, features map[string]models.FeatureVector) (*models.BettingAdvice, error)
	GetParameters() map[string]interface{}
}

// StrategyMetadata describes a recommender for logging and audit
type StrategyMetadata struct {
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// Describe returns the metadata of a recommender
func Describe(r Recommender) StrategyMetadata {
	return StrategyMetadata{
		Name:       r.Name(),
		Parameters: r.GetParameters(),
	}
}
