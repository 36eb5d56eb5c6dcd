package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds for analysis failures. These are part of the API contract and
// surface verbatim in responses and audit records.
const (
	ErrInvalidProfile      = "INVALID_PROFILE"
	ErrSourceUnavailable   = "SOURCE_UNAVAILABLE"
	ErrNoEvidenceFound     = "NO_EVIDENCE_FOUND"
	ErrRankingInconsistent = "RANKING_INCONSISTENT"
	ErrDownstreamTimeout   = "DOWNSTREAM_TIMEOUT"
	ErrInternal            = "INTERNAL_ERROR"
)

// AnalysisError is the standardized failure type carried through the
// pipeline and returned to callers.
type AnalysisError struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	CaseID    string    `json:"case_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewAnalysisError creates a new AnalysisError with timestamp.
func NewAnalysisError(kind, message, details string) *AnalysisError {
	return &AnalysisError{
		Kind:      kind,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// WithCase attaches a case identifier to the error.
func (e *AnalysisError) WithCase(caseID string) *AnalysisError {
	e.CaseID = caseID
	return e
}

// IsKind reports whether err is (or wraps) an AnalysisError of the given kind.
func IsKind(err error, kind string) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// ErrorKind extracts the kind from err, falling back to INTERNAL_ERROR for
// errors that did not originate in the pipeline.
func ErrorKind(err error) string {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ErrInternal
}

// ValidationError reports a single invalid field of a patient profile.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
