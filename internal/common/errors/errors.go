// Package errors provides standardized error handling for the notification engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeConflict            ErrorCode = "CONFLICT"
	ErrCodeBadRequest          ErrorCode = "BAD_REQUEST"
	ErrCodeAdapterError        ErrorCode = "ADAPTER_ERROR"
	ErrCodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewTemplateNotFoundError creates a non-retryable template lookup error.
func NewTemplateNotFoundError(tenantID, ref string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "Template not found",
		Details:   fmt.Sprintf("tenantId: %s, template: %s", tenantID, ref),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewVersionNotFoundError creates a non-retryable template version lookup error.
func NewVersionNotFoundError(templateID string, version int) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "Template version not found",
		Details:   fmt.Sprintf("templateId: %s, version: %d", templateID, version),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRouteNotFoundError creates a non-retryable route lookup error.
func NewRouteNotFoundError(tenantID, eventKey string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "Route not found",
		Details:   fmt.Sprintf("tenantId: %s, eventKey: %s", tenantID, eventKey),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationNotFoundError creates a non-retryable notification lookup error.
func NewNotificationNotFoundError(tenantID, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "Notification not found",
		Details:   fmt.Sprintf("tenantId: %s, notificationId: %s", tenantID, id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a generic non-retryable lookup error.
func NewNotFoundError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConflictError creates a generic non-retryable uniqueness violation.
func NewConflictError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConflict,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateTemplateKeyError creates a non-retryable duplicate key error.
func NewDuplicateTemplateKeyError(tenantID, key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConflict,
		Message:   "Template key already exists",
		Details:   fmt.Sprintf("tenantId: %s, key: %s", tenantID, key),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBadRequestError creates a non-retryable input error.
func NewBadRequestError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBadRequest,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRenderFailedError normalizes a rendering failure to BadRequest.
func NewRenderFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBadRequest,
		Message:   "Template rendering failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingRecipientFieldError creates the adapter error for a recipient
// that lacks the contact field its channel requires. Never attempted against
// an external transport.
func NewMissingRecipientFieldError(field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAdapterError,
		Message:   fmt.Sprintf("Recipient missing %s information", field),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdapterSendError creates a retryable per-channel transport error.
func NewAdapterSendError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAdapterError,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdapterNotRegisteredError creates the hard contract-violation error for
// a channel with no registered adapter.
func NewAdapterNotRegisteredError(channel string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAdapterError,
		Message:   "No adapter registered for channel",
		Details:   fmt.Sprintf("channel: %s", channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConcurrencyConflictError creates the error surfaced when an optimistic
// version check loses a race. The caller retries the whole operation.
func NewConcurrencyConflictError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConcurrencyConflict,
		Message:   fmt.Sprintf("Concurrent modification of %s", resource),
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStatusTransitionError rejects a lifecycle move the state machine
// does not permit.
func NewInvalidStatusTransitionError(from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConcurrencyConflict,
		Message:   "Invalid notification status transition",
		Details:   fmt.Sprintf("from: %s, to: %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

func codeOf(err error) (ErrorCode, bool) {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return "", false
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeNotFound
}

// IsConflict reports whether err carries the CONFLICT code.
func IsConflict(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeConflict
}

// IsBadRequest reports whether err carries the BAD_REQUEST code.
func IsBadRequest(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeBadRequest
}

// IsAdapterError reports whether err carries the ADAPTER_ERROR code.
func IsAdapterError(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeAdapterError
}

// IsConcurrencyConflict reports whether err carries the CONCURRENCY_CONFLICT code.
func IsConcurrencyConflict(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeConcurrencyConflict
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}
