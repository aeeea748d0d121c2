// internal/common/errors/errors_test.go
package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesMatchCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want func(error) bool
	}{
		{"template not found", NewTemplateNotFoundError("acme", "t1"), IsNotFound},
		{"notification not found", NewNotificationNotFoundError("acme", "n1"), IsNotFound},
		{"route not found", NewRouteNotFoundError("acme", "order.shipped"), IsNotFound},
		{"duplicate key", NewDuplicateTemplateKeyError("acme", "welcome"), IsConflict},
		{"bad request", NewBadRequestError("nope", ""), IsBadRequest},
		{"render failed", NewRenderFailedError("unbalanced braces"), IsBadRequest},
		{"adapter send", NewAdapterSendError("email", errors.New("boom")), IsAdapterError},
		{"adapter not registered", NewAdapterNotRegisteredError("sms"), IsAdapterError},
		{"concurrency conflict", NewConcurrencyConflictError("template", ""), IsConcurrencyConflict},
		{"invalid transition", NewInvalidStatusTransitionError("delivered", "sending"), IsConcurrencyConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want(tt.err))
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("loading template: %w", NewTemplateNotFoundError("acme", "t1"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewAdapterSendError("email", errors.New("relay down"))),
		"transport failures may be retried on the next cycle")
	assert.True(t, IsRetryable(NewConcurrencyConflictError("notification", "")),
		"a lost CAS race is safe to retry after a re-read")

	assert.False(t, IsRetryable(NewAdapterNotRegisteredError("sms")), "a missing adapter needs an operator, not a retry")
	assert.False(t, IsRetryable(NewBadRequestError("nope", "")))
	assert.False(t, IsRetryable(errors.New("plain error")))
}

func TestMissingRecipientFieldMessage(t *testing.T) {
	assert.Equal(t, "Recipient missing email information", NewMissingRecipientFieldError("email").Message)
	assert.Equal(t, "Recipient missing webhookUrl information", NewMissingRecipientFieldError("webhookUrl").Message)
}

func TestAdapterSendErrorCarriesCause(t *testing.T) {
	err := NewAdapterSendError("webhook", errors.New("connection refused"))
	assert.Contains(t, err.Details, "channel: webhook")
	assert.Contains(t, err.Details, "connection refused")
}
