package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsType_WrappedError(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewDuplicateSubmissionError("abc"))

	assert.True(t, IsType(err, ErrorTypeDuplicateSubmission))
	assert.False(t, IsType(err, ErrorTypeCapacityExceeded))
	assert.False(t, IsType(context.Canceled, ErrorTypeInternal))
}

func TestQuotaScopeOf(t *testing.T) {
	scope, ok := QuotaScopeOf(NewQuotaExceededError(QuotaScopeDay, 150))
	assert.True(t, ok)
	assert.Equal(t, QuotaScopeDay, scope)

	_, ok = QuotaScopeOf(NewAnalysisError("boom", nil))
	assert.False(t, ok)
}

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewDuplicateSubmissionError("x"), http.StatusConflict},
		{NewCapacityExceededError(5), http.StatusServiceUnavailable},
		{NewQuotaExceededError(QuotaScopeMonth, 4000), http.StatusTooManyRequests},
		{NewAnalysisError("upstream", nil), http.StatusBadGateway},
		{NewInsufficientDataError("no tags"), http.StatusBadRequest},
		{NewNotFoundError("missing", nil), http.StatusNotFound},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GetStatusCode(tt.err), tt.err.Error())
	}
}

func TestAppError_ErrorIncludesCause(t *testing.T) {
	err := NewAnalysisError("vision API call failed", context.DeadlineExceeded)

	assert.Contains(t, err.Error(), "analysis: vision API call failed")
	assert.Contains(t, err.Error(), "context deadline exceeded")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "", MessageOf(nil))
	assert.Equal(t, "image is already being processed", MessageOf(fmt.Errorf("retry: %w", NewDuplicateSubmissionError("x"))))
	assert.Equal(t, "plain", MessageOf(fmt.Errorf("plain")))
}
