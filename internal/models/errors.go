package models

import (
	"errors"
	"fmt"
)

// ErrorKind tags a failure so callers can render it without parsing messages
type ErrorKind string

const (
	KindMalformedPayload ErrorKind = "MalformedPayload"
	KindInvalidEntrant   ErrorKind = "InvalidEntrant"
	KindInsufficientData ErrorKind = "InsufficientData"
	KindInternal         ErrorKind = "Internal"
)

// ErrorPayload is the serializable form of any engine failure
type ErrorPayload struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// ValidationError reports caller data that cannot be accepted
type ValidationError struct {
	Kind    ErrorKind
	Message string
	Field   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (field: %s)", e.Kind, e.Message, e.Field)
}

// Payload returns the serializable form of the error
func (e *ValidationError) Payload() ErrorPayload {
	return ErrorPayload{Kind: e.Kind, Message: e.Message, Field: e.Field}
}

// NewValidationError creates a new validation error
func NewValidationError(kind ErrorKind, field, message string) *ValidationError {
	return &ValidationError{
		Kind:    kind,
		Message: message,
		Field:   field,
	}
}

// EngineError reports a failure to produce advice. Cause is kept for logging
// and never serialized.
type EngineError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Payload returns the serializable form of the error
func (e *EngineError) Payload() ErrorPayload {
	return ErrorPayload{Kind: e.Kind, Message: e.Message}
}

// NewEngineError creates a new engine error
func NewEngineError(kind ErrorKind, message string, cause error) *EngineError {
	return &EngineError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// KindOf returns the kind carried by err, or "" when err is not a typed engine failure
func KindOf(err error) ErrorKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

// Custom errors
var (
	ErrNilRecord = NewValidationError(KindMalformedPayload, "", "race record is required")
)
