package service

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DataNormalizer normalizes race payload values to canonical form
type DataNormalizer struct {
	surfaceMap map[string]string // Maps provider surface names to canonical names
	goingMap   map[string]string
	logger     *logrus.Entry
}

// NewDataNormalizer creates a new data normalizer
func NewDataNormalizer(logger *logrus.Logger) *DataNormalizer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DataNormalizer{
		surfaceMap: buildSurfaceMap(),
		goingMap:   buildGoingMap(),
		logger:     logger.WithField("component", "normalizer"),
	}
}

// NormalizeSurface converts provider-specific surface names to canonical format
func (n *DataNormalizer) NormalizeSurface(surface string) string {
	trimmed := strings.TrimSpace(surface)
	if trimmed == "" {
		return ""
	}

	if canonical, ok := n.surfaceMap[strings.ToUpper(trimmed)]; ok {
		return canonical
	}

	n.logger.WithField("surface", trimmed).Debug("Unknown surface, keeping as given")
	return trimmed
}

// NormalizeGoing converts going descriptions to canonical format
func (n *DataNormalizer) NormalizeGoing(going string) string {
	trimmed := strings.TrimSpace(going)
	if trimmed == "" {
		return ""
	}

	if canonical, ok := n.goingMap[strings.ToUpper(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// Odds bounds.
const (
	// MaxOdds is the longest decimal price accepted for an entrant.
	MaxOdds = 10000
	// maxOddsDigits bounds the digits and the exponent of an odds value, so
	// that decimal arithmetic on it stays cheap.
	maxOddsDigits = 32
	// maxOddsLength bounds the odds text before it is parsed.
	maxOddsLength = 64
)

// ErrOddsOutOfRange is returned for odds that are negative, too precise or above MaxOdds
var ErrOddsOutOfRange = errors.New("odds out of range")

var maxOdds = decimal.NewFromInt(MaxOdds)

// NormalizeOdds converts odds from decimal ("2.5") or fractional ("3/2") notation to decimal odds
func (n *DataNormalizer) NormalizeOdds(oddsStr string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(oddsStr)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("odds are empty")
	}
	if len(trimmed) > maxOddsLength {
		return decimal.Zero, fmt.Errorf("%w: odds text longer than %d characters", ErrOddsOutOfRange, maxOddsLength)
	}

	if num, den, ok := strings.Cut(trimmed, "/"); ok {
		numerator, err := decimal.NewFromString(strings.TrimSpace(num))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid fractional odds %q: %w", trimmed, err)
		}
		denominator, err := decimal.NewFromString(strings.TrimSpace(den))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid fractional odds %q: %w", trimmed, err)
		}
		if !denominator.IsPositive() {
			return decimal.Zero, fmt.Errorf("invalid fractional odds %q: denominator must be positive", trimmed)
		}
		if numerator.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: fractional odds %q have a negative numerator", ErrOddsOutOfRange, trimmed)
		}
		if err := checkOddsMagnitude(trimmed, numerator); err != nil {
			return decimal.Zero, err
		}
		if err := checkOddsMagnitude(trimmed, denominator); err != nil {
			return decimal.Zero, err
		}
		// Fractional odds exclude the returned stake
		return checkOddsRange(trimmed, numerator.Div(denominator).Add(decimal.NewFromInt(1)))
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal odds %q: %w", trimmed, err)
	}
	if err := checkOddsMagnitude(trimmed, d); err != nil {
		return decimal.Zero, err
	}
	return checkOddsRange(trimmed, d)
}

// CheckOdds reports whether already-parsed odds are within the accepted range.
// Sign is not checked here.
func CheckOdds(d decimal.Decimal) error {
	if err := checkOddsMagnitude("", d); err != nil {
		return err
	}
	_, err := checkOddsRange("", d)
	return err
}

// checkOddsMagnitude must run before any comparison or conversion: decimal
// rescales by the exponent, which is unbounded in the input.
func checkOddsMagnitude(input string, d decimal.Decimal) error {
	exp := d.Exponent()
	if exp > maxOddsDigits || exp < -maxOddsDigits || d.NumDigits() > maxOddsDigits {
		if input == "" {
			return fmt.Errorf("%w: more than %d digits or exponent beyond %d", ErrOddsOutOfRange, maxOddsDigits, maxOddsDigits)
		}
		return fmt.Errorf("%w: %q has more than %d digits or exponent beyond %d", ErrOddsOutOfRange, input, maxOddsDigits, maxOddsDigits)
	}
	return nil
}

func checkOddsRange(input string, d decimal.Decimal) (decimal.Decimal, error) {
	if d.GreaterThan(maxOdds) {
		return decimal.Zero, fmt.Errorf("%w: %s exceeds %d", ErrOddsOutOfRange, d.String(), MaxOdds)
	}
	if f, _ := d.Float64(); math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Zero, fmt.Errorf("%w: %q is not a finite number", ErrOddsOutOfRange, input)
	}
	return d, nil
}

// NormalizeIdentifier trims surrounding whitespace from identifiers
func (n *DataNormalizer) NormalizeIdentifier(id string) string {
	return strings.TrimSpace(id)
}

// sanitizeName removes extra whitespace from names
func sanitizeName(name *string) string {
	if name == nil || *name == "" {
		return ""
	}
	return strings.Join(strings.Fields(*name), " ")
}

// buildSurfaceMap returns mapping of surface name variations to canonical names
func buildSurfaceMap() map[string]string {
	return map[string]string{
		"TURF":        "Turf",
		"GRASS":       "Turf",
		"T":           "Turf",
		"AWT":         "All Weather",
		"ALL WEATHER": "All Weather",
		"ALL-WEATHER": "All Weather",
		"ALLWEATHER":  "All Weather",
		"SYNTHETIC":   "All Weather",
		"POLYTRACK":   "All Weather",
		"TAPETA":      "All Weather",
		"DIRT":        "Dirt",
		"D":           "Dirt",
		"SAND":        "Sand",
	}
}

// buildGoingMap returns mapping of going abbreviations to canonical descriptions
func buildGoingMap() map[string]string {
	return map[string]string{
		"F":                "Firm",
		"FIRM":             "Firm",
		"GF":               "Good to Firm",
		"GOOD TO FIRM":     "Good to Firm",
		"G":                "Good",
		"GOOD":             "Good",
		"GY":               "Good to Yielding",
		"GOOD TO YIELDING": "Good to Yielding",
		"Y":                "Yielding",
		"YIELDING":         "Yielding",
		"S":                "Soft",
		"SOFT":             "Soft",
		"H":                "Heavy",
		"HEAVY":            "Heavy",
		"WF":               "Wet Fast",
		"WET FAST":         "Wet Fast",
		"WS":               "Wet Slow",
		"WET SLOW":         "Wet Slow",
	}
}
