// internal/adapter/inapp.go
package adapter

import (
	"context"

	"notify-engine/internal/models"
)

// InAppAdapter is a no-fail marker. The real work for the in_app channel
// happens in the inbox materializer; this adapter exists so the registry
// covers every routable channel and dispatch bookkeeping stays uniform.
type InAppAdapter struct{}

func NewInAppAdapter() *InAppAdapter { return &InAppAdapter{} }

func (a *InAppAdapter) Channel() models.Channel { return models.ChannelInApp }

func (a *InAppAdapter) Send(ctx context.Context, n *models.Notification, rcpt models.Recipient, msg Message) Result {
	return successResult(nil)
}
