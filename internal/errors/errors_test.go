package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestContagionError_Error(t *testing.T) {
	err := New(ErrCategoryIngest, CodeMalformedRecord, "bad line")
	expected := "[INGEST:MALFORMED_RECORD] bad line"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestContagionError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCategoryStorage, CodeDownloadFailed, "download failed", cause)
	expected := "[STORAGE:DOWNLOAD_FAILED] download failed: connection refused"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestContagionError_ErrorInMatch(t *testing.T) {
	err := NewAnalysisError(CodeEmptyMatch, "match has no kill events").InMatch("m1", "match_index")
	expected := "[ANALYSIS:EMPTY_MATCH] match has no kill events (match=m1 stage=match_index)"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestContagionError_ErrorWithObject(t *testing.T) {
	err := NewStorageError(CodeObjectNotFound, "input not found", nil).
		WithDetails(map[string]interface{}{DetailObject: "logs/kills.txt"})
	expected := "[STORAGE:OBJECT_NOT_FOUND] input not found (object=logs/kills.txt)"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestContagionError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategorySimulation, CodeTrialFailed, "trial 3", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestContagionError_Is(t *testing.T) {
	err1 := New(ErrCategoryAnalysis, CodeEmptyMatch, "first")
	err2 := New(ErrCategoryAnalysis, CodeEmptyMatch, "second")
	err3 := New(ErrCategoryAnalysis, CodeUnorderedEvents, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryStorage, CodeDownloadFailed, true},
		{ErrCategoryStorage, CodeObjectNotFound, false},
		{ErrCategoryIngest, CodeMalformedRecord, false},
		{ErrCategoryAnalysis, CodeEmptyMatch, false},
		{ErrCategorySimulation, CodeTrialFailed, false},
		{ErrCategoryValidation, CodeInvalidConfig, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}
}

func TestGetCategory(t *testing.T) {
	err := New(ErrCategoryIngest, CodeMalformedRecord, "bad line")
	if GetCategory(err) != ErrCategoryIngest {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryIngest)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-ContagionError should return empty category")
	}
}

func TestGetCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New(ErrCategoryAnalysis, CodeUnorderedEvents, "out of order"))
	if GetCode(wrapped) != CodeUnorderedEvents {
		t.Errorf("got %q, want %q", GetCode(wrapped), CodeUnorderedEvents)
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-ContagionError should return empty code")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ErrCategoryIngest, CodeMalformedRecord, "bad line")
	detailed := err.WithDetails(map[string]interface{}{DetailLine: 12})

	if detailed.Details[DetailLine] != 12 {
		t.Error("WithDetails should set details")
	}
	// Original should be unmodified
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}

	tagged := detailed.InMatch("m9", "witness")
	if v, ok := GetDetail(tagged, DetailMatchID); !ok || v != "m9" {
		t.Errorf("match detail = %v, %v", v, ok)
	}
	if tagged.Details[DetailLine] != 12 {
		t.Error("InMatch should keep earlier details")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := fmt.Errorf("io error")

	v := NewValidationError(CodeInvalidConfig, "window_days must be positive")
	if v.Category != ErrCategoryValidation || v.Code != CodeInvalidConfig {
		t.Error("NewValidationError mismatch")
	}

	in := NewIngestError(CodeMalformedRecord, "bad timestamp", cause)
	if in.Category != ErrCategoryIngest || !errors.Is(in, cause) {
		t.Error("NewIngestError mismatch")
	}

	s := NewStorageError(CodeDownloadFailed, "s3 down", cause)
	if s.Category != ErrCategoryStorage || !errors.Is(s, cause) {
		t.Error("NewStorageError mismatch")
	}

	a := NewAnalysisError(CodeEmptyMatch, "no events")
	if a.Category != ErrCategoryAnalysis {
		t.Error("NewAnalysisError mismatch")
	}

	sim := NewSimulationError(CodeTrialFailed, "trial 2 failed", cause)
	if sim.Category != ErrCategorySimulation {
		t.Error("NewSimulationError mismatch")
	}

	i := NewInternalError("unexpected", cause)
	if i.Category != ErrCategoryInternal || i.Code != CodeUnexpected {
		t.Error("NewInternalError mismatch")
	}
}
