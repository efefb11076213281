package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerWithOutput(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		environment string
		wantLevel   logrus.Level
		wantJSON    bool
	}{
		{name: "production uses json", level: "warn", environment: "production", wantLevel: logrus.WarnLevel, wantJSON: true},
		{name: "development uses text", level: "debug", environment: "development", wantLevel: logrus.DebugLevel},
		{name: "invalid level falls back to info", level: "loud", environment: "staging", wantLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := NewLoggerWithOutput(tt.level, tt.environment, buf)
			assert.Equal(t, tt.wantLevel, log.GetLevel())

			_, isJSON := log.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	assert.NotPanics(t, func() {
		log.WithField("race_id", "R1").Error("dropped")
	})
}

func TestAuditLoggerRaceAccepted(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogRaceAccepted("HV-R3", 12, 11)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, "HV-R3", logEntry["race_id"])
	assert.Equal(t, float64(12), logEntry["entrants"])
	assert.Equal(t, float64(11), logEntry["eligible_entrants"])
	assert.Equal(t, "info", logEntry["level"])
}

func TestAuditLoggerRaceRejected(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogRaceRejected("InvalidEntrant", "entrants[1].id", "duplicate entrant id")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "InvalidEntrant", logEntry["kind"])
	assert.Equal(t, "entrants[1].id", logEntry["field"])
	assert.Equal(t, "warning", logEntry["level"])
}

func TestAuditLoggerAdviceIssued(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogAdviceIssued("ST-R1", "4", "High", 0.175, "composite_ranking")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "4", logEntry["selection"])
	assert.Equal(t, "High", logEntry["confidence"])
	assert.InDelta(t, 0.175, logEntry["score_gap"], 1e-12)
	assert.Equal(t, "composite_ranking", logEntry["strategy"])
}

func TestAuditLoggerNoAdvice(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogNoAdvice("ST-R2", "no eligible entrants to rank")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "ST-R2", logEntry["race_id"])
	assert.Equal(t, "no eligible entrants to rank", logEntry["reason"])
}

func TestAuditLoggerInternalFault(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogInternalFault("get-betting-advice", errors.New("index out of range"), "goroutine 1 [running]")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "get-betting-advice", logEntry["operation"])
	assert.Equal(t, "index out of range", logEntry["error"])
	assert.Equal(t, "goroutine 1 [running]", logEntry["stack"])
}
