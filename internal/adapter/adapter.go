// internal/adapter/adapter.go
package adapter

import (
	"context"

	"notify-engine/internal/common/errors"
	"notify-engine/internal/models"
)

// Message is the rendered content delivered over a channel.
type Message struct {
	Subject string
	Body    string
}

// Result is the synchronous outcome of one send attempt. Error is a
// human-readable description; adapters never panic or propagate transport
// errors as Go errors to the coordinator.
type Result struct {
	Success  bool
	Error    string
	Metadata map[string]string
}

func successResult(metadata map[string]string) Result {
	return Result{Success: true, Metadata: metadata}
}

// failureResult normalizes a transport failure into the retryable adapter
// error shape; Result.Error carries the channel plus the underlying cause.
func failureResult(channel models.Channel, err error) Result {
	return Result{Success: false, Error: errors.NewAdapterSendError(string(channel), err).Details}
}

// missingFieldResult builds the canonical missing-recipient-field failure.
func missingFieldResult(field string) Result {
	return Result{Success: false, Error: errors.NewMissingRecipientFieldError(field).Message}
}

// Adapter is one send capability. Implementations validate the recipient's
// required contact field before touching any external transport.
type Adapter interface {
	Channel() models.Channel
	Send(ctx context.Context, n *models.Notification, rcpt models.Recipient, msg Message) Result
}

// Registry maps channels to their registered adapters. Registration happens
// at startup; lookups afterwards are read-only, so no locking is needed.
type Registry struct {
	adapters map[models.Channel]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[models.Channel]Adapter)}
}

func (r *Registry) Register(a Adapter) {
	r.adapters[a.Channel()] = a
}

// Get returns the adapter for ch. A missing adapter is a hard contract
// violation, not a silent skip.
func (r *Registry) Get(ch models.Channel) (Adapter, error) {
	a, ok := r.adapters[ch]
	if !ok {
		return nil, errors.NewAdapterNotRegisteredError(string(ch))
	}
	return a, nil
}

// Channels lists the registered channels.
func (r *Registry) Channels() []models.Channel {
	out := make([]models.Channel, 0, len(r.adapters))
	for ch := range r.adapters {
		out = append(out, ch)
	}
	return out
}
