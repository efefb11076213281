package service

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/yourusername/hkjc-advisor/internal/models"
)

const (
	// RecentFormLength is how many of the latest finishes are reported
	RecentFormLength = 5
	// PlacingPosition is the worst finish that still counts as a place
	PlacingPosition = 3
)

// FormHistoryRequest is the payload of the analyze-form-history channel.
// Races are ordered oldest first.
type FormHistoryRequest struct {
	HorseID string                  `json:"horse_id"`
	Races   []models.HistoricalRace `json:"races"`
}

type formHistoryPayload struct {
	HorseID *string                 `json:"horse_id" validate:"required"`
	Races   []models.HistoricalRace `json:"races" validate:"required,dive"`
}

// ValidateFormHistoryRequest decodes and validates a form history payload
func (v *RaceValidator) ValidateFormHistoryRequest(payload []byte) (*FormHistoryRequest, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, models.NewValidationError(models.KindMalformedPayload, "", "payload is empty")
	}

	var raw formHistoryPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, decodeError("", err)
	}
	if err := v.validate.Struct(&raw); err != nil {
		return nil, v.fieldError("", err, models.KindMalformedPayload)
	}

	horseID := v.normalizer.NormalizeIdentifier(*raw.HorseID)
	if horseID == "" {
		return nil, models.NewValidationError(models.KindMalformedPayload, "horse_id", "horse_id must not be blank")
	}

	return &FormHistoryRequest{HorseID: horseID, Races: raw.Races}, nil
}

// AnalyzeFormHistory computes the historical performance of one horse
func AnalyzeFormHistory(horseID string, races []models.HistoricalRace) *models.FormHistory {
	history := &models.FormHistory{
		HorseID:    horseID,
		RecentForm: []int{},
	}

	positions := make([]int, 0, len(races))
	for _, race := range races {
		for _, result := range race.Results {
			if strings.TrimSpace(result.EntrantID) == horseID {
				positions = append(positions, result.Position)
				break
			}
		}
	}

	if len(positions) == 0 {
		return history
	}

	total := 0
	wins := 0
	places := 0
	for _, p := range positions {
		total += p
		if p == 1 {
			wins++
		}
		if p <= PlacingPosition {
			places++
		}
	}

	history.TotalRaces = len(positions)
	history.AverageFinish = float64(total) / float64(len(positions))
	history.WinRate = float64(wins) / float64(len(positions))
	history.PlaceRate = float64(places) / float64(len(positions))

	// Latest finishes first so the result can feed an entrant's form directly
	for i := len(positions) - 1; i >= 0 && len(history.RecentForm) < RecentFormLength; i-- {
		history.RecentForm = append(history.RecentForm, positions[i])
	}

	return history
}
