package service

import (
	"github.com/shopspring/decimal"
	"github.com/yourusername/hkjc-advisor/internal/models"
)

// AnalyzeRace summarizes the field of a validated race.
// Averages and overround only consider eligible entrants.
func AnalyzeRace(record *models.RaceRecord) *models.RaceAnalysis {
	analysis := &models.RaceAnalysis{
		TotalEntrants: len(record.Entrants),
		Surface:       record.Conditions.Surface,
	}

	oddsSum := decimal.Zero
	weightSum := 0.0
	weighed := 0
	for i := range record.Entrants {
		entrant := &record.Entrants[i]
		if !entrant.IsEligible() {
			analysis.ScratchedEntrants++
			continue
		}
		analysis.EligibleEntrants++
		oddsSum = oddsSum.Add(entrant.Odds)
		analysis.Overround += entrant.GetImpliedProbability()
		if entrant.Weight != nil {
			weightSum += *entrant.Weight
			weighed++
		}
	}

	if analysis.EligibleEntrants > 0 {
		analysis.AverageOdds = oddsSum.Div(decimal.NewFromInt(int64(analysis.EligibleEntrants))).InexactFloat64()
	}
	if weighed > 0 {
		avg := weightSum / float64(weighed)
		analysis.AverageWeight = &avg
	}

	return analysis
}
