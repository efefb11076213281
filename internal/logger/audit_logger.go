// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging of engine decisions.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogRaceAccepted logs a race payload that passed validation.
func (al *AuditLogger) LogRaceAccepted(raceID string, entrants, eligible int) {
	al.WithFields(logrus.Fields{
		"race_id":           raceID,
		"entrants":          entrants,
		"eligible_entrants": eligible,
	}).Info("Race data accepted")
}

// LogRaceRejected logs a race payload that failed validation.
func (al *AuditLogger) LogRaceRejected(kind, field, message string) {
	al.WithFields(logrus.Fields{
		"kind":    kind,
		"field":   field,
		"message": message,
	}).Warn("Race data rejected")
}

// LogAdviceIssued logs a betting recommendation.
func (al *AuditLogger) LogAdviceIssued(raceID, selection, confidence string, scoreGap float64, strategyName string) {
	al.WithFields(logrus.Fields{
		"race_id":    raceID,
		"selection":  selection,
		"confidence": confidence,
		"score_gap":  scoreGap,
		"strategy":   strategyName,
	}).Info("Betting advice issued")
}

// LogNoAdvice logs a race for which no recommendation was available.
func (al *AuditLogger) LogNoAdvice(raceID, reason string) {
	al.WithFields(logrus.Fields{
		"race_id": raceID,
		"reason":  reason,
	}).Info("No betting advice available")
}

// LogInternalFault logs an unexpected engine failure with its cause.
func (al *AuditLogger) LogInternalFault(operation string, cause error, stack string) {
	al.WithFields(logrus.Fields{
		"operation": operation,
		"stack":     stack,
	}).WithError(cause).Error("Internal engine fault")
}
