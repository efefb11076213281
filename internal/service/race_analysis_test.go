package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/hkjc-advisor/internal/logger"
	"github.com/yourusername/hkjc-advisor/internal/models"
)

func weight(w float64) *float64 {
	return &w
}

func TestAnalyzeRace(t *testing.T) {
	record := &models.RaceRecord{
		RaceID: "R1",
		Entrants: []models.Entrant{
			{ID: "1", Odds: decimal.NewFromInt(2), Weight: weight(130)},
			{ID: "2", Odds: decimal.NewFromInt(4), Weight: weight(120)},
			{ID: "3", Odds: decimal.NewFromInt(4)},
			{ID: "4", Odds: decimal.NewFromInt(50), Scratched: true, Weight: weight(999)},
		},
		Conditions: models.RaceConditions{FieldSize: 4, Surface: "Turf"},
	}

	analysis := AnalyzeRace(record)
	assert.Equal(t, 4, analysis.TotalEntrants)
	assert.Equal(t, 3, analysis.EligibleEntrants)
	assert.Equal(t, 1, analysis.ScratchedEntrants)
	assert.InDelta(t, 10.0/3.0, analysis.AverageOdds, 1e-9)
	assert.InDelta(t, 1.0, analysis.Overround, 1e-12)
	assert.InDelta(t, 0.0, analysis.GetBookMargin(), 1e-9)
	require.NotNil(t, analysis.AverageWeight)
	assert.InDelta(t, 125.0, *analysis.AverageWeight, 1e-12)
	assert.Equal(t, "Turf", analysis.Surface)
}

func TestAnalyzeRaceNoEligibleEntrants(t *testing.T) {
	record := &models.RaceRecord{
		RaceID:   "R1",
		Entrants: []models.Entrant{{ID: "1", Odds: decimal.NewFromInt(3), Scratched: true}},
	}

	analysis := AnalyzeRace(record)
	assert.Zero(t, analysis.EligibleEntrants)
	assert.Zero(t, analysis.AverageOdds)
	assert.Zero(t, analysis.Overround)
	assert.Nil(t, analysis.AverageWeight)
}

func TestAnalyzeFormHistory(t *testing.T) {
	races := []models.HistoricalRace{
		{RaceID: "R1", Results: []models.HistoricalResult{{EntrantID: "H1", Position: 5}}},
		{RaceID: "R2", Results: []models.HistoricalResult{{EntrantID: "H2", Position: 1}}},
		{RaceID: "R3", Results: []models.HistoricalResult{{EntrantID: "H1", Position: 2}}},
		{RaceID: "R4", Results: []models.HistoricalResult{{EntrantID: "H1", Position: 1}}},
		{RaceID: "R5", Results: []models.HistoricalResult{{EntrantID: "H1", Position: 3}}},
		{RaceID: "R6", Results: []models.HistoricalResult{{EntrantID: "H1", Position: 8}}},
		{RaceID: "R7", Results: []models.HistoricalResult{{EntrantID: " H1 ", Position: 1}}},
	}

	history := AnalyzeFormHistory("H1", races)
	assert.Equal(t, "H1", history.HorseID)
	assert.Equal(t, 6, history.TotalRaces)
	assert.InDelta(t, 20.0/6.0, history.AverageFinish, 1e-9)
	assert.InDelta(t, 2.0/6.0, history.WinRate, 1e-9)
	assert.InDelta(t, 4.0/6.0, history.PlaceRate, 1e-9)
	assert.Equal(t, []int{1, 8, 3, 1, 2}, history.RecentForm)
	assert.True(t, history.HasHistory())
}

func TestAnalyzeFormHistoryUnknownHorse(t *testing.T) {
	history := AnalyzeFormHistory("H9", []models.HistoricalRace{
		{RaceID: "R1", Results: []models.HistoricalResult{{EntrantID: "H1", Position: 1}}},
	})

	assert.False(t, history.HasHistory())
	assert.Equal(t, []int{}, history.RecentForm)
	assert.Zero(t, history.WinRate)
}

func TestValidateFormHistoryRequest(t *testing.T) {
	v := NewRaceValidator(logger.Discard())

	req, err := v.ValidateFormHistoryRequest([]byte(`{"horse_id": " H1 ", "races": [{"race_id": "R1", "results": [{"id": "H1", "position": 2}]}]}`))
	require.NoError(t, err)
	assert.Equal(t, "H1", req.HorseID)
	require.Len(t, req.Races, 1)

	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{name: "empty", payload: ``},
		{name: "missing horse", payload: `{"races": []}`, field: "horse_id"},
		{name: "blank horse", payload: `{"horse_id": " ", "races": []}`, field: "horse_id"},
		{name: "missing races", payload: `{"horse_id": "H1"}`, field: "races"},
		{name: "zero position", payload: `{"horse_id": "H1", "races": [{"race_id": "R1", "results": [{"id": "H1", "position": 0}]}]}`, field: "races[0].results[0].position"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateFormHistoryRequest([]byte(tt.payload))
			var ve *models.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, models.KindMalformedPayload, ve.Kind)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
