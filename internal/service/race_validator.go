package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/hkjc-advisor/internal/models"
)

// racePayload is the raw shape accepted on the process-race-data channel.
// Pointer fields distinguish a missing value from a zero value.
type racePayload struct {
	RaceID     *string            `json:"race_id" validate:"required"`
	Entrants   []json.RawMessage  `json:"entrants" validate:"required"`
	Conditions *conditionsPayload `json:"conditions"`
}

type conditionsPayload struct {
	Distance   *int    `json:"distance" validate:"omitempty,gt=0"`
	Surface    *string `json:"surface"`
	FieldSize  *int    `json:"field_size"`
	Going      *string `json:"going"`
	Venue      *string `json:"venue"`
	RaceNumber *int    `json:"race_number" validate:"omitempty,gt=0"`
}

type entrantPayload struct {
	ID        *string         `json:"id" validate:"required"`
	Name      *string         `json:"name"`
	Odds      json.RawMessage `json:"odds" validate:"required"`
	Form      []int           `json:"form" validate:"omitempty,dive,gte=1"`
	Scratched bool            `json:"scratched"`
	Weight    *float64        `json:"weight" validate:"omitempty,gt=0"`
}

// RaceValidator turns raw race payloads into validated race records
type RaceValidator struct {
	validate   *validator.Validate
	normalizer *DataNormalizer
	logger     *logrus.Entry
}

// NewRaceValidator creates a new race validator
func NewRaceValidator(logger *logrus.Logger) *RaceValidator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RaceValidator{
		validate:   newPayloadValidator(),
		normalizer: NewDataNormalizer(logger),
		logger:     logger.WithField("component", "validator"),
	}
}

func newPayloadValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names so error paths match the payload
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate decodes, normalizes and validates a raw race payload.
// Failures are always *models.ValidationError.
func (v *RaceValidator) Validate(payload []byte) (*models.RaceRecord, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, models.NewValidationError(models.KindMalformedPayload, "", "payload is empty")
	}

	var raw racePayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, decodeError("", err)
	}
	if err := v.validate.Struct(&raw); err != nil {
		return nil, v.fieldError("", err, models.KindMalformedPayload)
	}

	record := &models.RaceRecord{
		RaceID:   v.normalizer.NormalizeIdentifier(*raw.RaceID),
		Entrants: make([]models.Entrant, 0, len(raw.Entrants)),
	}

	for i, rawEntrant := range raw.Entrants {
		entrant, err := v.decodeEntrant(i, rawEntrant)
		if err != nil {
			return nil, err
		}
		record.Entrants = append(record.Entrants, *entrant)
	}

	conditions, err := v.buildConditions(raw.Conditions, len(record.Entrants))
	if err != nil {
		return nil, err
	}
	record.Conditions = conditions

	if err := v.ValidateRecord(record); err != nil {
		return nil, err
	}

	if !record.HasEligibleEntrants() {
		v.logger.WithField("race_id", record.RaceID).Debug("Race has no eligible entrants")
	}
	if record.Conditions.Distance > 0 && !IsStandardDistance(record.Conditions.Distance) {
		v.logger.WithFields(logrus.Fields{
			"race_id":  record.RaceID,
			"distance": record.Conditions.Distance,
		}).Debug("Non-standard race distance")
	}

	return record, nil
}

// ValidateRecord checks the invariants of an already-built race record
func (v *RaceValidator) ValidateRecord(record *models.RaceRecord) error {
	if record == nil {
		return models.ErrNilRecord
	}
	if strings.TrimSpace(record.RaceID) == "" {
		return models.NewValidationError(models.KindMalformedPayload, "race_id", "race_id must not be blank")
	}

	seen := make(map[string]int, len(record.Entrants))
	for i, entrant := range record.Entrants {
		path := fmt.Sprintf("entrants[%d]", i)
		if strings.TrimSpace(entrant.ID) == "" {
			return models.NewValidationError(models.KindMalformedPayload, path+".id", "entrant id must not be blank")
		}
		if first, dup := seen[entrant.ID]; dup {
			return models.NewValidationError(models.KindInvalidEntrant, path+".id",
				fmt.Sprintf("duplicate entrant id %q (first seen at entrants[%d])", entrant.ID, first))
		}
		seen[entrant.ID] = i

		if !entrant.Odds.IsPositive() {
			return models.NewValidationError(models.KindInvalidEntrant, path+".odds", "odds must be positive")
		}
		if err := CheckOdds(entrant.Odds); err != nil {
			return models.NewValidationError(models.KindInvalidEntrant, path+".odds", err.Error())
		}
		for j, position := range entrant.Form {
			if position < 1 {
				return models.NewValidationError(models.KindInvalidEntrant, fmt.Sprintf("%s.form[%d]", path, j),
					fmt.Sprintf("finish position must be at least 1, got %d", position))
			}
		}
	}

	if record.Conditions.FieldSize != len(record.Entrants) {
		return models.NewValidationError(models.KindInvalidEntrant, "conditions.field_size",
			fmt.Sprintf("declared field size %d does not match %d entrants", record.Conditions.FieldSize, len(record.Entrants)))
	}

	return nil
}

func (v *RaceValidator) decodeEntrant(index int, raw json.RawMessage) (*models.Entrant, error) {
	path := fmt.Sprintf("entrants[%d]", index)

	var ep entrantPayload
	if err := json.Unmarshal(raw, &ep); err != nil {
		return nil, decodeError(path, err)
	}
	if err := v.validate.Struct(&ep); err != nil {
		return nil, v.fieldError(path, err, models.KindInvalidEntrant)
	}

	odds, err := v.parseOdds(path+".odds", ep.Odds)
	if err != nil {
		return nil, err
	}

	entrant := &models.Entrant{
		ID:        v.normalizer.NormalizeIdentifier(*ep.ID),
		Name:      sanitizeName(ep.Name),
		Odds:      odds,
		Form:      ep.Form,
		Scratched: ep.Scratched,
		Weight:    ep.Weight,
	}
	if entrant.Form == nil {
		entrant.Form = []int{}
	}
	return entrant, nil
}

// parseOdds accepts a JSON number, a decimal string or a fractional string
func (v *RaceValidator) parseOdds(field string, raw json.RawMessage) (decimal.Decimal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.Zero, models.NewValidationError(models.KindMalformedPayload, field, "odds are required")
	}

	var text string
	switch trimmed[0] {
	case '"':
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return decimal.Zero, models.NewValidationError(models.KindMalformedPayload, field, "odds string is not valid JSON")
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		text = string(trimmed)
	default:
		return decimal.Zero, models.NewValidationError(models.KindMalformedPayload, field, "odds must be a number or a string")
	}

	odds, err := v.normalizer.NormalizeOdds(text)
	if errors.Is(err, ErrOddsOutOfRange) {
		return decimal.Zero, models.NewValidationError(models.KindInvalidEntrant, field, err.Error())
	}
	if err != nil {
		return decimal.Zero, models.NewValidationError(models.KindMalformedPayload, field, err.Error())
	}
	return odds, nil
}

func (v *RaceValidator) buildConditions(raw *conditionsPayload, entrantCount int) (models.RaceConditions, error) {
	conditions := models.RaceConditions{FieldSize: entrantCount}
	if raw == nil {
		return conditions, nil
	}
	if err := v.validate.Struct(raw); err != nil {
		return conditions, v.fieldError("conditions", err, models.KindMalformedPayload)
	}

	if raw.Distance != nil {
		conditions.Distance = *raw.Distance
	}
	if raw.Surface != nil {
		conditions.Surface = v.normalizer.NormalizeSurface(*raw.Surface)
	}
	if raw.FieldSize != nil {
		conditions.FieldSize = *raw.FieldSize
	}
	if raw.Going != nil {
		conditions.Going = v.normalizer.NormalizeGoing(*raw.Going)
	}
	if raw.Venue != nil {
		conditions.Venue = sanitizeName(raw.Venue)
	}
	if raw.RaceNumber != nil {
		conditions.RaceNumber = *raw.RaceNumber
	}
	return conditions, nil
}

// fieldError converts the first validator failure into a typed validation error.
// Missing values are always malformed; other constraint failures use kind.
func (v *RaceValidator) fieldError(prefix string, err error, kind models.ErrorKind) *models.ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return models.NewValidationError(models.KindMalformedPayload, prefix, err.Error())
	}

	fe := fieldErrs[0]
	field := joinPath(prefix, trimNamespace(fe.Namespace()))
	if fe.Tag() == "required" {
		return models.NewValidationError(models.KindMalformedPayload, field, fmt.Sprintf("%s is required", fe.Field()))
	}
	return models.NewValidationError(kind, field,
		fmt.Sprintf("%s failed %s=%s constraint, got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
}

// decodeError converts a JSON decoding failure into a malformed payload error
func decodeError(prefix string, err error) *models.ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return models.NewValidationError(models.KindMalformedPayload, joinPath(prefix, typeErr.Field),
			fmt.Sprintf("expected %s, got JSON %s", typeErr.Type, typeErr.Value))
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return models.NewValidationError(models.KindMalformedPayload, prefix,
			fmt.Sprintf("invalid JSON at offset %d", syntaxErr.Offset))
	}
	return models.NewValidationError(models.KindMalformedPayload, prefix, err.Error())
}

// trimNamespace drops the Go struct name that prefixes validator namespaces
func trimNamespace(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func joinPath(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	default:
		return prefix + "." + field
	}
}

// IsStandardDistance checks if distance is one of the usual flat race distances in metres
func IsStandardDistance(distance int) bool {
	validDistances := map[int]bool{
		1000: true, 1200: true, 1400: true, 1600: true, 1650: true,
		1800: true, 2000: true, 2200: true, 2400: true,
	}
	return validDistances[distance]
}
