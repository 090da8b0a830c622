package domain

import (
	"errors"
	"strings"
)

// ============================================================================
// Artifact Resolution Errors
// ============================================================================

var (
	ErrArtifactNotFound        = errors.New("model artifact not found")
	ErrNoVersionFound          = errors.New("no model version found for stage")
	ErrRegistryUnavailable     = errors.New("model registry is not configured")
	ErrModelLoadFailed         = errors.New("model loading failed")
	ErrFlavorMismatch          = errors.New("model is not stored in this flavor")
	ErrPreprocessingLoadFailed = errors.New("preprocessing artifacts loading failed")
)

// ============================================================================
// Prediction Errors
// ============================================================================

var (
	ErrValidation             = errors.New("validation failed")
	ErrModelNotReady          = errors.New("model is not loaded")
	ErrPredictionFailed       = errors.New("prediction failed")
	ErrProbabilityUnavailable = errors.New("class probabilities unavailable")
	ErrFeatureMismatch        = errors.New("feature vector does not match the fitted schema")
	ErrPredictionNotFound     = errors.New("prediction not found")
	ErrAuditLogDisabled       = errors.New("prediction audit log is not enabled")
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field that failed validation. It unwraps to
// ErrValidation so callers can keep matching on the sentinel.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
