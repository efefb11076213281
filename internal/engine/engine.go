// Package engine is the entry point of race validation and betting advice.
package engine

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/hkjc-advisor/internal/features"
	"github.com/yourusername/hkjc-advisor/internal/logger"
	"github.com/yourusername/hkjc-advisor/internal/metrics"
	"github.com/yourusername/hkjc-advisor/internal/models"
	"github.com/yourusername/hkjc-advisor/internal/service"
	"github.com/yourusername/hkjc-advisor/internal/strategy"
)

// Operation names, shared with the IPC channels that expose them
const (
	OpProcessRaceData    = "process-race-data"
	OpGetBettingAdvice   = "get-betting-advice"
	OpAnalyzeFormHistory = "analyze-form-history"
)

const internalErrorMessage = "internal engine error"

// Validator turns payloads into validated domain values
type Validator interface {
	Validate(payload []byte) (*models.RaceRecord, error)
	ValidateRecord(record *models.RaceRecord) error
	ValidateFormHistoryRequest(payload []byte) (*service.FormHistoryRequest, error)
}

// FeatureExtractor computes feature vectors for the eligible entrants of a race
type FeatureExtractor interface {
	Extract(record *models.RaceRecord) map[string]models.FeatureVector
}

// Engine validates race data and produces betting advice. It holds no
// per-race state and is safe for concurrent use.
type Engine struct {
	validator   Validator
	extractor   FeatureExtractor
	recommender strategy.Recommender
	cache       *AdviceCache
	logger      *logrus.Entry
	audit       *logger.AuditLogger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithValidator replaces the payload validator
func WithValidator(v Validator) Option {
	return func(e *Engine) {
		e.validator = v
	}
}

// WithExtractor replaces the feature extractor
func WithExtractor(x FeatureExtractor) Option {
	return func(e *Engine) {
		e.extractor = x
	}
}

// WithRecommender replaces the recommendation strategy
func WithRecommender(r strategy.Recommender) Option {
	return func(e *Engine) {
		e.recommender = r
	}
}

// WithCache memoizes advice by record fingerprint
func WithCache(c *AdviceCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// New creates an engine with the default validator, extractor and composite strategy
func New(log *logrus.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Engine{
		logger: log.WithField("component", "engine"),
		audit:  logger.NewAuditLogger(log),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validator == nil {
		e.validator = service.NewRaceValidator(log)
	}
	if e.extractor == nil {
		e.extractor = features.NewExtractor()
	}
	if e.recommender == nil {
		e.recommender = strategy.NewCompositeStrategy()
	}

	meta := strategy.Describe(e.recommender)
	e.logger.WithFields(logrus.Fields{
		"strategy":   meta.Name,
		"parameters": meta.Parameters,
		"cache":      e.cache != nil,
	}).Debug("Engine initialized")
	return e
}

// Cache returns the advice cache, or nil when caching is disabled
func (e *Engine) Cache() *AdviceCache {
	return e.cache
}

// ProcessRaceData validates a raw race payload and returns the normalized
// record with its race analysis attached.
func (e *Engine) ProcessRaceData(payload []byte) (record *models.RaceRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			record = nil
			err = e.internalFault(OpProcessRaceData, r)
		}
	}()

	record, err = e.validator.Validate(payload)
	if err != nil {
		return nil, e.fail(OpProcessRaceData, "", err)
	}

	record.Analysis = service.AnalyzeRace(record)
	e.logger.WithFields(logrus.Fields{
		"race_id":     record.RaceID,
		"overround":   record.Analysis.Overround,
		"book_margin": record.Analysis.GetBookMargin(),
	}).Debug("Race analyzed")

	metrics.RecordRaceProcessed("accepted")
	e.audit.LogRaceAccepted(record.RaceID, record.Analysis.TotalEntrants, record.Analysis.EligibleEntrants)
	return record, nil
}

// GetBettingAdvice ranks the eligible entrants of a validated record and
// recommends the best one.
func (e *Engine) GetBettingAdvice(record *models.RaceRecord) (advice *models.BettingAdvice, err error) {
	defer func() {
		if r := recover(); r != nil {
			advice = nil
			err = e.internalFault(OpGetBettingAdvice, r)
		}
	}()

	if err := e.validator.ValidateRecord(record); err != nil {
		return nil, e.fail(OpGetBettingAdvice, "", err)
	}

	key := e.cacheKey(record)
	if key != "" {
		if cached := e.cache.Get(key); cached != nil {
			e.logger.WithField("race_id", record.RaceID).Debug("Advice served from cache")
			e.recordAdvice(cached)
			return cached, nil
		}
	}

	vectors := e.extractor.Extract(record)
	e.logger.WithFields(logrus.Fields{
		"race_id":         record.RaceID,
		"eligible":        len(vectors),
		"probability_sum": features.ImpliedProbabilitySum(vectors),
	}).Debug("Features extracted")

	advice, err = e.recommender.Recommend(record.RaceID, vectors)
	if err != nil {
		return nil, e.fail(OpGetBettingAdvice, record.RaceID, err)
	}
	if advice == nil || !advice.HasSelection() {
		return nil, e.fail(OpGetBettingAdvice, record.RaceID, errors.New("recommender returned no selection"))
	}
	if _, ok := vectors[advice.Selection]; !ok {
		return nil, e.fail(OpGetBettingAdvice, record.RaceID,
			fmt.Errorf("selection %q is not an eligible entrant", advice.Selection))
	}

	if key != "" {
		e.cache.Set(key, advice)
	}
	e.recordAdvice(advice)
	return advice, nil
}

// GetBettingAdviceFromPayload validates a raw record payload and returns advice for it
func (e *Engine) GetBettingAdviceFromPayload(payload []byte) (advice *models.BettingAdvice, err error) {
	defer func() {
		if r := recover(); r != nil {
			advice = nil
			err = e.internalFault(OpGetBettingAdvice, r)
		}
	}()

	record, err := e.validator.Validate(payload)
	if err != nil {
		return nil, e.fail(OpGetBettingAdvice, "", err)
	}
	return e.GetBettingAdvice(record)
}

// AnalyzeFormHistory summarizes the past finishes of one horse
func (e *Engine) AnalyzeFormHistory(payload []byte) (history *models.FormHistory, err error) {
	defer func() {
		if r := recover(); r != nil {
			history = nil
			err = e.internalFault(OpAnalyzeFormHistory, r)
		}
	}()

	req, err := e.validator.ValidateFormHistoryRequest(payload)
	if err != nil {
		return nil, e.fail(OpAnalyzeFormHistory, "", err)
	}

	history = service.AnalyzeFormHistory(req.HorseID, req.Races)
	e.logger.WithFields(logrus.Fields{
		"horse_id":    history.HorseID,
		"total_races": history.TotalRaces,
		"has_history": history.HasHistory(),
	}).Debug("Form history analyzed")
	return history, nil
}

// ErrorPayloadFor converts any engine failure into its serializable form.
// Untyped errors never leak their message.
func ErrorPayloadFor(err error) models.ErrorPayload {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return ve.Payload()
	}
	var ee *models.EngineError
	if errors.As(err, &ee) {
		return ee.Payload()
	}
	return models.ErrorPayload{Kind: models.KindInternal, Message: internalErrorMessage}
}

func (e *Engine) cacheKey(record *models.RaceRecord) string {
	if e.cache == nil {
		return ""
	}
	key, err := Fingerprint(record)
	if err != nil {
		e.logger.WithError(err).Warn("Advice cache bypassed")
		return ""
	}
	return key
}

func (e *Engine) recordAdvice(advice *models.BettingAdvice) {
	metrics.RecordAdvice(string(advice.Confidence), advice.Rationale.ScoreGap)
	e.audit.LogAdviceIssued(advice.RaceID, advice.Selection, string(advice.Confidence),
		advice.Rationale.ScoreGap, e.recommender.Name())
}

// fail records a failed operation. Typed failures pass through unchanged;
// anything else becomes an Internal error.
func (e *Engine) fail(operation, raceID string, err error) error {
	kind := models.KindOf(err)
	switch kind {
	case models.KindMalformedPayload, models.KindInvalidEntrant:
		payload := ErrorPayloadFor(err)
		if operation == OpProcessRaceData {
			metrics.RecordRaceProcessed("rejected")
		}
		e.audit.LogRaceRejected(string(payload.Kind), payload.Field, payload.Message)
	case models.KindInsufficientData:
		e.audit.LogNoAdvice(raceID, err.Error())
	case models.KindInternal:
		e.audit.LogInternalFault(operation, err, "")
	default:
		e.audit.LogInternalFault(operation, err, "")
		kind = models.KindInternal
		err = models.NewEngineError(models.KindInternal, internalErrorMessage, err)
	}
	metrics.RecordEngineError(operation, string(kind))
	return err
}

func (e *Engine) internalFault(operation string, recovered interface{}) error {
	cause := fmt.Errorf("panic in %s: %v", operation, recovered)
	e.audit.LogInternalFault(operation, cause, string(debug.Stack()))
	metrics.RecordEngineError(operation, string(models.KindInternal))
	return models.NewEngineError(models.KindInternal, internalErrorMessage, cause)
}
