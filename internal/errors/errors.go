// Package errors provides structured error types for the contagion analysis.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryIngest     ErrorCategory = "INGEST"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryAnalysis   ErrorCategory = "ANALYSIS"
	ErrCategorySimulation ErrorCategory = "SIMULATION"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidConfig = "INVALID_CONFIG"

	// Ingest codes
	CodeMalformedRecord  = "MALFORMED_RECORD"
	CodeDuplicateCheater = "DUPLICATE_CHEATER"
	CodeUnsupportedInput = "UNSUPPORTED_INPUT"

	// Storage codes
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Analysis codes
	CodeEmptyMatch       = "EMPTY_MATCH"
	CodeUnorderedEvents  = "UNORDERED_EVENTS"
	CodeMismatchedMatch  = "MISMATCHED_MATCH"
	CodeInvalidThreshold = "INVALID_THRESHOLD"

	// Simulation codes
	CodeTrialFailed = "TRIAL_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// Detail keys shared by the analysis stages.
const (
	DetailMatchID = "match_id"
	DetailStage   = "stage"
	DetailTrial   = "trial"
	DetailLine    = "line"
	DetailObject  = "object"
)

// ContagionError is the structured error type used throughout the system.
type ContagionError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *ContagionError) Error() string {
	msg := e.Message
	if id, ok := e.Details[DetailMatchID]; ok {
		msg = fmt.Sprintf("%s (match=%v", msg, id)
		if stage, ok := e.Details[DetailStage]; ok {
			msg = fmt.Sprintf("%s stage=%v", msg, stage)
		}
		msg += ")"
	}
	if obj, ok := e.Details[DetailObject]; ok {
		msg = fmt.Sprintf("%s (object=%v)", msg, obj)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *ContagionError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *ContagionError) Is(target error) bool {
	var t *ContagionError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new ContagionError.
func New(category ErrorCategory, code, message string) *ContagionError {
	return &ContagionError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new ContagionError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *ContagionError {
	return &ContagionError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details merged in.
func (e *ContagionError) WithDetails(details map[string]interface{}) *ContagionError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range details {
		cp.Details[k] = v
	}
	return &cp
}

// InMatch tags the error with the match and pipeline stage it came from.
func (e *ContagionError) InMatch(matchID, stage string) *ContagionError {
	return e.WithDetails(map[string]interface{}{
		DetailMatchID: matchID,
		DetailStage:   stage,
	})
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var ce *ContagionError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a ContagionError.
func GetCategory(err error) ErrorCategory {
	var ce *ContagionError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a ContagionError.
func GetCode(err error) string {
	var ce *ContagionError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// GetDetail extracts a detail value from an error chain.
func GetDetail(err error, key string) (interface{}, bool) {
	var ce *ContagionError
	if errors.As(err, &ce) {
		v, ok := ce.Details[key]
		return v, ok
	}
	return nil, false
}

// isRetryable reports whether the failure can be transient. The analysis
// itself is pure; only fetching inputs can fail transiently.
func isRetryable(category ErrorCategory, code string) bool {
	return category == ErrCategoryStorage && code == CodeDownloadFailed
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *ContagionError {
	return New(ErrCategoryValidation, code, message)
}

func NewIngestError(code, message string, cause error) *ContagionError {
	return Wrap(ErrCategoryIngest, code, message, cause)
}

func NewStorageError(code, message string, cause error) *ContagionError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewAnalysisError(code, message string) *ContagionError {
	return New(ErrCategoryAnalysis, code, message)
}

func NewSimulationError(code, message string, cause error) *ContagionError {
	return Wrap(ErrCategorySimulation, code, message, cause)
}

func NewInternalError(message string, cause error) *ContagionError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
