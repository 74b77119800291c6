package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassification(t *testing.T) {
	cause := stderrors.New("connection reset by peer")

	tests := []struct {
		name     string
		err      error
		code     ErrorCode
		reason   string
		check    func(error) bool
		category string
	}{
		{
			name:     "validation",
			err:      NewValidationError("cibil_score: must be <= 900"),
			code:     ErrCodeValidationFailed,
			reason:   "validation failed: cibil_score: must be <= 900",
			check:    IsValidation,
			category: "VALIDATION",
		},
		{
			name:     "business logic",
			err:      NewBusinessLogicError("decision failed", cause),
			code:     ErrCodeBusinessLogicFailed,
			reason:   "decision failed: connection reset by peer",
			check:    IsBusinessLogic,
			category: "BUSINESS",
		},
		{
			name:     "storage",
			err:      NewStorageError("update_status", cause),
			code:     ErrCodeStorageFailed,
			reason:   "storage operation update_status failed: connection reset by peer",
			check:    IsStorage,
			category: "DATABASE",
		},
		{
			name:     "channel",
			err:      NewChannelError("publish", cause),
			code:     ErrCodeChannelFailed,
			reason:   "channel operation publish failed: connection reset by peer",
			check:    IsChannel,
			category: "MESSAGING",
		},
		{
			name:     "circuit open",
			err:      NewCircuitOpenError("database_updates", cause),
			code:     ErrCodeCircuitOpen,
			reason:   "circuit breaker open",
			check:    IsCircuitOpen,
			category: "RESILIENCE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, CodeOf(tt.err))
			assert.Equal(t, tt.reason, Reason(tt.err))
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.category, GetErrorCategory(tt.code))

			wrapped := fmt.Errorf("stage: %w", tt.err)
			assert.True(t, tt.check(wrapped))
			assert.Equal(t, tt.code, CodeOf(wrapped))
		})
	}
}

func TestStorageErrorUnwrap(t *testing.T) {
	cause := stderrors.New("tx aborted")
	err := NewStorageError("save", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable)
	assert.False(t, IsValidation(err))
	assert.Contains(t, err.Error(), "StandardError[STORAGE_FAILED]")
}

func TestNormalize(t *testing.T) {
	assert.Nil(t, Normalize(nil))

	plain := stderrors.New("boom")
	se := Normalize(plain)
	require.NotNil(t, se)
	assert.Equal(t, ErrCodeInternal, se.Code)
	assert.Equal(t, "boom", se.Details)
	assert.ErrorIs(t, se, plain)

	original := NewValidationError("bad")
	assert.Same(t, original, Normalize(fmt.Errorf("wrap: %w", original)))
}

func TestReasonPlainError(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "boom", Reason(stderrors.New("boom")))
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeStorageFailed))
	assert.True(t, IsRetryableErrorCode(ErrCodeChannelFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeValidationFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeCircuitOpen))
}

type recordingLogger struct {
	errors []map[string]interface{}
	warns  []map[string]interface{}
}

func (r *recordingLogger) Error(_ string, fields map[string]interface{}) {
	r.errors = append(r.errors, fields)
}

func (r *recordingLogger) Warn(_ string, fields map[string]interface{}) {
	r.warns = append(r.warns, fields)
}

func TestErrorHandler_Handle(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	assert.Nil(t, h.Handle("decide-application", nil, nil))

	se := h.Handle("decide-application", NewCircuitOpenError("database_updates", nil), map[string]interface{}{
		"applicationId": "app-1",
	})
	require.NotNil(t, se)
	require.Len(t, log.errors, 1)
	assert.Equal(t, "CIRCUIT_OPEN", log.errors[0]["errorCode"])
	assert.Equal(t, "database_updates", log.errors[0]["breaker"])
	assert.Equal(t, "app-1", log.errors[0]["applicationId"])

	h.Handle("score-application", NewValidationError("missing pan_number"), nil)
	require.Len(t, log.warns, 1)
	assert.Equal(t, "VALIDATION", log.warns[0]["errorCategory"])
}
