package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeDuplicateSubmission ErrorType = "duplicate_submission"
	ErrorTypeCapacityExceeded    ErrorType = "capacity_exceeded"
	ErrorTypeQuotaExceeded       ErrorType = "quota_exceeded"
	ErrorTypeAnalysis            ErrorType = "analysis"
	ErrorTypeInsufficientData    ErrorType = "insufficient_data"
	ErrorTypePersistence         ErrorType = "persistence"
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeInternal            ErrorType = "internal"
)

// QuotaScope names the quota window that rejected a call
type QuotaScope string

const (
	QuotaScopeMinute QuotaScope = "minute"
	QuotaScopeDay    QuotaScope = "day"
	QuotaScopeMonth  QuotaScope = "month"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType  `json:"type"`
	Message    string     `json:"message"`
	Details    string     `json:"details,omitempty"`
	Scope      QuotaScope `json:"scope,omitempty"`
	StatusCode int        `json:"status_code"`
	Cause      error      `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewDuplicateSubmissionError reports an image that is already being analyzed
func NewDuplicateSubmissionError(imageID string) *AppError {
	return &AppError{
		Type:       ErrorTypeDuplicateSubmission,
		Message:    "image is already being processed",
		Details:    imageID,
		StatusCode: http.StatusConflict,
	}
}

// NewCapacityExceededError reports a full task registry
func NewCapacityExceededError(maxConcurrent int) *AppError {
	return &AppError{
		Type:       ErrorTypeCapacityExceeded,
		Message:    "too many concurrent processing tasks",
		Details:    fmt.Sprintf("max_concurrent=%d", maxConcurrent),
		StatusCode: http.StatusServiceUnavailable,
	}
}

// NewQuotaExceededError reports an exhausted vision API quota window
func NewQuotaExceededError(scope QuotaScope, limit int) *AppError {
	return &AppError{
		Type:       ErrorTypeQuotaExceeded,
		Message:    fmt.Sprintf("vision API %s quota exceeded", scope),
		Details:    fmt.Sprintf("limit=%d", limit),
		Scope:      scope,
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewAnalysisError wraps a failed or malformed vision API call
func NewAnalysisError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeAnalysis,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewInsufficientDataError reports a similarity source without analysis data
func NewInsufficientDataError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInsufficientData,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewPersistenceError wraps a failed storage collaborator call
func NewPersistenceError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypePersistence,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// IsType checks if the error, or any error it wraps, is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// QuotaScopeOf returns the rejecting window of a quota error
func QuotaScopeOf(err error) (QuotaScope, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeQuotaExceeded {
		return appErr.Scope, true
	}
	return "", false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-facing message of an error
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
