// internal/store/store.go
package store

import (
	"context"
	"time"

	"notify-engine/internal/models"
)

// TemplateStore persists templates and their immutable version arena.
type TemplateStore interface {
	// CreateTemplate persists t together with its initial version in one
	// atomic write: a template either exists with version 1 present and
	// CurrentVersion set to it, or not at all. A duplicate (tenant, key)
	// returns a conflict and leaves nothing behind, so the failed key is
	// immediately reusable.
	CreateTemplate(ctx context.Context, t *models.Template, v1 *models.TemplateVersion) error
	GetTemplate(ctx context.Context, tenantID, id string) (*models.Template, error)
	GetTemplateByKey(ctx context.Context, tenantID, key string) (*models.Template, error)
	ListTemplates(ctx context.Context, tenantID string) ([]*models.Template, error)
	UpdateTemplateMeta(ctx context.Context, t *models.Template) error

	// AppendVersion atomically appends v and advances the parent's
	// CurrentVersion to v.Version. The write only succeeds while the parent's
	// CurrentVersion still equals expectedCurrent; a lost race returns a
	// concurrency conflict so two editors can never produce the same number.
	AppendVersion(ctx context.Context, tenantID string, expectedCurrent int, v *models.TemplateVersion) error
	GetVersion(ctx context.Context, tenantID, templateID string, version int) (*models.TemplateVersion, error)
	ListVersions(ctx context.Context, tenantID, templateID string) ([]*models.TemplateVersion, error)
}

// RouteStore persists per-event routing rules.
type RouteStore interface {
	UpsertRoute(ctx context.Context, r *models.Route) error
	GetRoute(ctx context.Context, tenantID, eventKey string) (*models.Route, error)
	DeleteRoute(ctx context.Context, tenantID, eventKey string) error
	ListRoutes(ctx context.Context, tenantID string) ([]*models.Route, error)
}

// PreferenceStore persists per-user channel preferences.
type PreferenceStore interface {
	UpsertPreference(ctx context.Context, p *models.Preference) error
	GetPreference(ctx context.Context, tenantID, userID string) (*models.Preference, error)
}

// NotificationStore persists dispatch requests and their lifecycle.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, tenantID, id string) (*models.Notification, error)
	ListNotifications(ctx context.Context, tenantID string, status models.NotificationStatus) ([]*models.Notification, error)

	// ListDueNotifications returns, across all tenants, pending notifications
	// plus scheduled ones whose send time has arrived, oldest first. The
	// dispatcher's poll loop feeds on this.
	ListDueNotifications(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error)

	// UpdateNotificationCAS persists n only while the stored RecordVersion
	// still equals expectedVersion, then bumps RecordVersion. A late writer
	// gets a concurrency conflict and must re-read; it can never silently
	// revert a terminal status.
	UpdateNotificationCAS(ctx context.Context, n *models.Notification, expectedVersion int) error
}

// InboxStore persists materialized in-app deliveries.
type InboxStore interface {
	// CreateInboxEntry enforces at most one entry per
	// (tenant, user, notification); a duplicate returns a conflict.
	CreateInboxEntry(ctx context.Context, e *models.InboxEntry) error
	ListInboxEntries(ctx context.Context, tenantID, userID string, unreadOnly bool) ([]*models.InboxEntry, error)
	MarkInboxEntryRead(ctx context.Context, tenantID, userID, entryID string) error
	ArchiveInboxEntry(ctx context.Context, tenantID, userID, entryID string) error
}

// Store is the full persistent-store collaborator contract.
type Store interface {
	TemplateStore
	RouteStore
	PreferenceStore
	NotificationStore
	InboxStore
}
