package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeBusinessLogicFailed ErrorCode = "BUSINESS_LOGIC_FAILED"
	ErrCodeStorageFailed       ErrorCode = "STORAGE_FAILED"
	ErrCodeChannelFailed       ErrorCode = "CHANNEL_FAILED"
	ErrCodeCircuitOpen         ErrorCode = "CIRCUIT_OPEN"
	ErrCodeNotFound            ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the classified error every pipeline component returns.
// Message is the short tag written to the dead-letter entry; Details carries
// the underlying cause.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Reason is the human readable text used in dead-letter entries and API
// error bodies.
func (e *StandardError) Reason() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewBusinessLogicError(details string, err error) *StandardError {
	e := &StandardError{
		Code:      ErrCodeBusinessLogicFailed,
		Message:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

func NewStorageError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageFailed,
		Message:   fmt.Sprintf("storage operation %s failed", operation),
		Details:   errText(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewChannelError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeChannelFailed,
		Message:   fmt.Sprintf("channel operation %s failed", operation),
		Details:   errText(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewCircuitOpenError(name string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCircuitOpen,
		Message:   "circuit breaker open",
		Retryable: false,
		Metadata:  map[string]interface{}{"breaker": name},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// CodeOf returns the code of the first StandardError in err's chain, or
// INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

func hasCode(err error, code ErrorCode) bool {
	var se *StandardError
	return stderrors.As(err, &se) && se.Code == code
}

func IsValidation(err error) bool    { return hasCode(err, ErrCodeValidationFailed) }
func IsBusinessLogic(err error) bool { return hasCode(err, ErrCodeBusinessLogicFailed) }
func IsStorage(err error) bool       { return hasCode(err, ErrCodeStorageFailed) }
func IsChannel(err error) bool       { return hasCode(err, ErrCodeChannelFailed) }
func IsCircuitOpen(err error) bool   { return hasCode(err, ErrCodeCircuitOpen) }
func IsNotFound(err error) bool      { return hasCode(err, ErrCodeNotFound) }

// Normalize returns err as a StandardError, wrapping unknown errors as
// INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var se *StandardError
	if stderrors.As(err, &se) {
		return se
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// Reason is the dead-letter text for any error.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Reason()
	}
	return err.Error()
}

func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeStorageFailed, ErrCodeChannelFailed:
		return true
	default:
		return false
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "BUSINESS"):
		return "BUSINESS"
	case strings.Contains(codeStr, "STORAGE"), strings.Contains(codeStr, "NOT_FOUND"):
		return "DATABASE"
	case strings.Contains(codeStr, "CHANNEL"):
		return "MESSAGING"
	case strings.Contains(codeStr, "CIRCUIT"):
		return "RESILIENCE"
	default:
		return "OTHER"
	}
}
