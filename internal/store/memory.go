// internal/store/memory.go
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"notify-engine/internal/common/errors"
	"notify-engine/internal/models"
)

// MemoryStore is a mutex-guarded in-memory Store. It is the reference
// implementation of the collaborator semantics and backs the unit tests.
type MemoryStore struct {
	mu sync.RWMutex

	templates     map[string]*models.Template          // tenant/id
	templateKeys  map[string]string                    // tenant/key -> id
	versions      map[string][]*models.TemplateVersion // tenant/templateId, ordered
	routes        map[string]*models.Route             // tenant/eventKey
	preferences   map[string]*models.Preference        // tenant/userId
	notifications map[string]*models.Notification      // tenant/id
	inboxEntries  map[string][]*models.InboxEntry      // tenant/userId, newest last
	inboxSeen     map[string]struct{}                  // tenant/userId/notificationId
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates:     make(map[string]*models.Template),
		templateKeys:  make(map[string]string),
		versions:      make(map[string][]*models.TemplateVersion),
		routes:        make(map[string]*models.Route),
		preferences:   make(map[string]*models.Preference),
		notifications: make(map[string]*models.Notification),
		inboxEntries:  make(map[string][]*models.InboxEntry),
		inboxSeen:     make(map[string]struct{}),
	}
}

func scopedKey(parts ...string) string {
	return strings.Join(parts, "/")
}

// ==========================
// Templates
// ==========================

func (s *MemoryStore) CreateTemplate(_ context.Context, t *models.Template, v1 *models.TemplateVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keyIdx := scopedKey(t.TenantID, t.Key)
	if _, exists := s.templateKeys[keyIdx]; exists {
		return errors.NewDuplicateTemplateKeyError(t.TenantID, t.Key)
	}

	tk := scopedKey(t.TenantID, t.ID)
	cp := *t
	cp.CurrentVersion = v1.Version
	s.templates[tk] = &cp
	s.templateKeys[keyIdx] = t.ID

	vcp := *v1
	s.versions[tk] = append(s.versions[tk], &vcp)
	return nil
}

func (s *MemoryStore) GetTemplate(_ context.Context, tenantID, id string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[scopedKey(tenantID, id)]
	if !ok {
		return nil, errors.NewTemplateNotFoundError(tenantID, id)
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) GetTemplateByKey(_ context.Context, tenantID, key string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.templateKeys[scopedKey(tenantID, key)]
	if !ok {
		return nil, errors.NewTemplateNotFoundError(tenantID, key)
	}
	cp := *s.templates[scopedKey(tenantID, id)]
	return &cp, nil
}

func (s *MemoryStore) ListTemplates(_ context.Context, tenantID string) ([]*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := tenantID + "/"
	out := make([]*models.Template, 0)
	for k, t := range s.templates {
		if strings.HasPrefix(k, prefix) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) UpdateTemplateMeta(_ context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := scopedKey(t.TenantID, t.ID)
	if _, ok := s.templates[k]; !ok {
		return errors.NewTemplateNotFoundError(t.TenantID, t.ID)
	}
	cp := *t
	s.templates[k] = &cp
	return nil
}

func (s *MemoryStore) AppendVersion(_ context.Context, tenantID string, expectedCurrent int, v *models.TemplateVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tk := scopedKey(tenantID, v.TemplateID)
	t, ok := s.templates[tk]
	if !ok {
		return errors.NewTemplateNotFoundError(tenantID, v.TemplateID)
	}
	if t.CurrentVersion != expectedCurrent {
		return errors.NewConcurrencyConflictError("template",
			fmt.Sprintf("templateId: %s, expected version %d, have %d", v.TemplateID, expectedCurrent, t.CurrentVersion))
	}
	if v.Version != expectedCurrent+1 {
		return errors.NewConcurrencyConflictError("template",
			fmt.Sprintf("templateId: %s, version %d does not follow %d", v.TemplateID, v.Version, expectedCurrent))
	}

	cp := *v
	s.versions[tk] = append(s.versions[tk], &cp)
	t.CurrentVersion = v.Version
	t.Channels = v.Channels
	t.UpdatedAt = v.CreatedAt
	return nil
}

func (s *MemoryStore) GetVersion(_ context.Context, tenantID, templateID string, version int) (*models.TemplateVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions[scopedKey(tenantID, templateID)] {
		if v.Version == version {
			cp := *v
			return &cp, nil
		}
	}
	return nil, errors.NewVersionNotFoundError(templateID, version)
}

func (s *MemoryStore) ListVersions(_ context.Context, tenantID, templateID string) ([]*models.TemplateVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vs := s.versions[scopedKey(tenantID, templateID)]
	out := make([]*models.TemplateVersion, 0, len(vs))
	for _, v := range vs {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

// ==========================
// Routes
// ==========================

func (s *MemoryStore) UpsertRoute(_ context.Context, r *models.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	s.routes[scopedKey(r.TenantID, r.EventKey)] = &cp
	return nil
}

func (s *MemoryStore) GetRoute(_ context.Context, tenantID, eventKey string) (*models.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.routes[scopedKey(tenantID, eventKey)]
	if !ok {
		return nil, errors.NewRouteNotFoundError(tenantID, eventKey)
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) DeleteRoute(_ context.Context, tenantID, eventKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := scopedKey(tenantID, eventKey)
	if _, ok := s.routes[k]; !ok {
		return errors.NewRouteNotFoundError(tenantID, eventKey)
	}
	delete(s.routes, k)
	return nil
}

func (s *MemoryStore) ListRoutes(_ context.Context, tenantID string) ([]*models.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := tenantID + "/"
	out := make([]*models.Route, 0)
	for k, r := range s.routes {
		if strings.HasPrefix(k, prefix) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventKey < out[j].EventKey })
	return out, nil
}

// ==========================
// Preferences
// ==========================

func (s *MemoryStore) UpsertPreference(_ context.Context, p *models.Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.preferences[scopedKey(p.TenantID, p.UserID)] = &cp
	return nil
}

func (s *MemoryStore) GetPreference(_ context.Context, tenantID, userID string) (*models.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.preferences[scopedKey(tenantID, userID)]
	if !ok {
		return nil, errors.NewNotFoundError("Preference",
			fmt.Sprintf("tenantId: %s, userId: %s", tenantID, userID))
	}
	cp := *p
	return &cp, nil
}

// ==========================
// Notifications
// ==========================

func (s *MemoryStore) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	s.notifications[scopedKey(n.TenantID, n.ID)] = &cp
	return nil
}

func (s *MemoryStore) GetNotification(_ context.Context, tenantID, id string) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[scopedKey(tenantID, id)]
	if !ok {
		return nil, errors.NewNotificationNotFoundError(tenantID, id)
	}
	cp := *n
	return &cp, nil
}

func (s *MemoryStore) ListNotifications(_ context.Context, tenantID string, status models.NotificationStatus) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := tenantID + "/"
	out := make([]*models.Notification, 0)
	for k, n := range s.notifications {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if status != "" && n.Status != status {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListDueNotifications(_ context.Context, now time.Time, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Notification, 0)
	for _, n := range s.notifications {
		switch n.Status {
		case models.StatusPending:
		case models.StatusScheduled:
			if n.ScheduledFor != nil && n.ScheduledFor.After(now) {
				continue
			}
		default:
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateNotificationCAS(_ context.Context, n *models.Notification, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := scopedKey(n.TenantID, n.ID)
	cur, ok := s.notifications[k]
	if !ok {
		return errors.NewNotificationNotFoundError(n.TenantID, n.ID)
	}
	if cur.RecordVersion != expectedVersion {
		return errors.NewConcurrencyConflictError("notification",
			fmt.Sprintf("notificationId: %s, expected record version %d, have %d", n.ID, expectedVersion, cur.RecordVersion))
	}

	cp := *n
	cp.RecordVersion = expectedVersion + 1
	s.notifications[k] = &cp
	n.RecordVersion = cp.RecordVersion
	return nil
}

// ==========================
// Inbox
// ==========================

func (s *MemoryStore) CreateInboxEntry(_ context.Context, e *models.InboxEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.NotificationID != "" {
		seenKey := scopedKey(e.TenantID, e.UserID, e.NotificationID)
		if _, dup := s.inboxSeen[seenKey]; dup {
			return errors.NewConflictError("Inbox entry already materialized",
				fmt.Sprintf("tenantId: %s, userId: %s, notificationId: %s", e.TenantID, e.UserID, e.NotificationID))
		}
		s.inboxSeen[seenKey] = struct{}{}
	}

	cp := *e
	uk := scopedKey(e.TenantID, e.UserID)
	s.inboxEntries[uk] = append(s.inboxEntries[uk], &cp)
	return nil
}

func (s *MemoryStore) ListInboxEntries(_ context.Context, tenantID, userID string, unreadOnly bool) ([]*models.InboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.InboxEntry, 0)
	for _, e := range s.inboxEntries[scopedKey(tenantID, userID)] {
		if unreadOnly && e.Read {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) MarkInboxEntryRead(_ context.Context, tenantID, userID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.inboxEntries[scopedKey(tenantID, userID)] {
		if e.ID == entryID {
			e.Read = true
			return nil
		}
	}
	return errors.NewNotFoundError("Inbox entry", fmt.Sprintf("entryId: %s", entryID))
}

func (s *MemoryStore) ArchiveInboxEntry(_ context.Context, tenantID, userID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.inboxEntries[scopedKey(tenantID, userID)] {
		if e.ID == entryID {
			e.Archived = true
			return nil
		}
	}
	return errors.NewNotFoundError("Inbox entry", fmt.Sprintf("entryId: %s", entryID))
}

var _ Store = (*MemoryStore)(nil)
