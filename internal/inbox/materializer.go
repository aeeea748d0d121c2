// internal/inbox/materializer.go
package inbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"notify-engine/internal/common/errors"
	"notify-engine/internal/common/logger"
	"notify-engine/internal/common/metrics"
	"notify-engine/internal/models"
	"notify-engine/internal/store"
)

// Materializer persists in-app deliveries as per-user inbox entries.
type Materializer struct {
	store  store.InboxStore
	logger logger.Logger
}

func NewMaterializer(st store.InboxStore, log logger.Logger) *Materializer {
	return &Materializer{
		store:  st,
		logger: log.WithFields(map[string]interface{}{"component": "inbox"}),
	}
}

// Materialize creates exactly one inbox entry per (tenant, user,
// notification). A repeat dispatch cycle for the same notification finds the
// existing entry and treats the delivery as already done.
func (m *Materializer) Materialize(ctx context.Context, n *models.Notification, userID, title, message string) (*models.InboxEntry, error) {
	if userID == "" {
		return nil, errors.NewBadRequestError("In-app delivery requires a user id", "")
	}

	entry := &models.InboxEntry{
		ID:             uuid.New().String(),
		TenantID:       n.TenantID,
		UserID:         userID,
		NotificationID: n.ID,
		Title:          title,
		Message:        message,
		Severity:       severityFromPayload(n.Payload),
		Read:           false,
		Archived:       false,
		DeliveredAt:    time.Now().UTC(),
	}

	if err := m.store.CreateInboxEntry(ctx, entry); err != nil {
		if errors.IsConflict(err) {
			m.logger.Debug("inbox entry already materialized", map[string]interface{}{
				"tenantId":       n.TenantID,
				"userId":         userID,
				"notificationId": n.ID,
			})
			return entry, nil
		}
		return nil, err
	}

	metrics.InboxEntriesCreated.Inc()
	m.logger.Info("inbox entry created", map[string]interface{}{
		"tenantId":       n.TenantID,
		"userId":         userID,
		"notificationId": n.ID,
		"severity":       entry.Severity,
	})
	return entry, nil
}

// severityFromPayload honours a "severity" payload field when it names a
// known level; anything else defaults to info.
func severityFromPayload(payload map[string]interface{}) models.Severity {
	if payload != nil {
		if raw, ok := payload["severity"].(string); ok {
			s := models.Severity(raw)
			if models.IsValidSeverity(s) {
				return s
			}
		}
	}
	return models.SeverityInfo
}

// List returns a user's inbox entries, optionally unread only.
func (m *Materializer) List(ctx context.Context, tenantID, userID string, unreadOnly bool) ([]*models.InboxEntry, error) {
	return m.store.ListInboxEntries(ctx, tenantID, userID, unreadOnly)
}

// MarkRead flips an entry's read flag.
func (m *Materializer) MarkRead(ctx context.Context, tenantID, userID, entryID string) error {
	return m.store.MarkInboxEntryRead(ctx, tenantID, userID, entryID)
}

// Archive hides an entry from the default inbox view.
func (m *Materializer) Archive(ctx context.Context, tenantID, userID, entryID string) error {
	return m.store.ArchiveInboxEntry(ctx, tenantID, userID, entryID)
}
