package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestAnalysisErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		kind string
	}{
		{"Invalid profile", ErrInvalidProfile},
		{"Source unavailable", ErrSourceUnavailable},
		{"No evidence", ErrNoEvidenceFound},
		{"Ranking inconsistent", ErrRankingInconsistent},
		{"Downstream timeout", ErrDownstreamTimeout},
		{"Internal", ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAnalysisError(tt.kind, "boom", "details")
			if !IsKind(err, tt.kind) {
				t.Errorf("IsKind(%s) = false", tt.kind)
			}
			if ErrorKind(err) != tt.kind {
				t.Errorf("ErrorKind() = %s, want %s", ErrorKind(err), tt.kind)
			}
		})
	}
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := NewAnalysisError(ErrDownstreamTimeout, "search timed out", "")
	wrapped := fmt.Errorf("retrieval: %w", inner)
	if !IsKind(wrapped, ErrDownstreamTimeout) {
		t.Error("IsKind must unwrap")
	}
	if ErrorKind(wrapped) != ErrDownstreamTimeout {
		t.Error("ErrorKind must unwrap")
	}
}

func TestErrorKindFallback(t *testing.T) {
	if ErrorKind(errors.New("plain")) != ErrInternal {
		t.Error("non-pipeline errors must map to INTERNAL_ERROR")
	}
}

func TestWithCase(t *testing.T) {
	err := NewAnalysisError(ErrNoEvidenceFound, "nothing", "").WithCase("case-1")
	if err.CaseID != "case-1" {
		t.Errorf("CaseID = %s", err.CaseID)
	}
	if err.Timestamp.IsZero() {
		t.Error("timestamp must be set")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("age", "age out of range", 150)
	if err.Error() != "validation error for field 'age': age out of range" {
		t.Errorf("Error() = %q", err.Error())
	}
}
