// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"notify-engine/internal/common/errors"
	"notify-engine/internal/models"
)

const pqUniqueViolation = "23505"

// PostgresStore implements Store over tenant-partitioned PostgreSQL tables.
// Structured fields (channels, recipients, payload, results) are stored as
// JSONB; status transitions and version appends use a guarded UPDATE so the
// read-modify-write is atomic.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

func marshalJSON(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// ==========================
// Templates
// ==========================

// CreateTemplate inserts the template row and its initial version in one
// transaction so a duplicate key or a mid-write failure leaves no
// half-created template behind.
func (s *PostgresStore) CreateTemplate(ctx context.Context, t *models.Template, v1 *models.TemplateVersion) error {
	tags, err := marshalJSON(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	sample, err := marshalJSON(t.SamplePayload)
	if err != nil {
		return fmt.Errorf("marshal sample payload: %w", err)
	}
	channels, err := marshalJSON(t.Channels)
	if err != nil {
		return fmt.Errorf("marshal channels: %w", err)
	}
	variables, err := marshalJSON(v1.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO templates
			(id, tenant_id, key, name, description, category, tags, sample_payload,
			 channels, current_version, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.TenantID, t.Key, t.Name, t.Description, t.Category, tags, sample,
		channels, v1.Version, t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewDuplicateTemplateKeyError(t.TenantID, t.Key)
		}
		return fmt.Errorf("insert template: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO template_versions
			(template_id, version, content, subject, channels, variables,
			 change_summary, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		v1.TemplateID, v1.Version, v1.Content, v1.Subject, channels, variables,
		v1.ChangeSummary, v1.CreatedBy, v1.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert initial version: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) scanTemplate(row *sql.Row, tenantID, ref string) (*models.Template, error) {
	var t models.Template
	var tags, sample, channels []byte

	err := row.Scan(&t.ID, &t.TenantID, &t.Key, &t.Name, &t.Description, &t.Category,
		&tags, &sample, &channels, &t.CurrentVersion, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewTemplateNotFoundError(tenantID, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}

	if err := unmarshalJSON(tags, &t.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := unmarshalJSON(sample, &t.SamplePayload); err != nil {
		return nil, fmt.Errorf("unmarshal sample payload: %w", err)
	}
	if err := unmarshalJSON(channels, &t.Channels); err != nil {
		return nil, fmt.Errorf("unmarshal channels: %w", err)
	}
	return &t, nil
}

const templateColumns = `id, tenant_id, key, name, description, category, tags,
	sample_payload, channels, current_version, created_by, created_at, updated_at`

func (s *PostgresStore) GetTemplate(ctx context.Context, tenantID, id string) (*models.Template, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	return s.scanTemplate(row, tenantID, id)
}

func (s *PostgresStore) GetTemplateByKey(ctx context.Context, tenantID, key string) (*models.Template, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE tenant_id = $1 AND key = $2`,
		tenantID, key)
	return s.scanTemplate(row, tenantID, key)
}

func (s *PostgresStore) ListTemplates(ctx context.Context, tenantID string) ([]*models.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE tenant_id = $1 ORDER BY key`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Template, 0)
	for rows.Next() {
		var t models.Template
		var tags, sample, channels []byte
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Key, &t.Name, &t.Description, &t.Category,
			&tags, &sample, &channels, &t.CurrentVersion, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		if err := unmarshalJSON(tags, &t.Tags); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(sample, &t.SamplePayload); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(channels, &t.Channels); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateTemplateMeta(ctx context.Context, t *models.Template) error {
	tags, err := marshalJSON(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	sample, err := marshalJSON(t.SamplePayload)
	if err != nil {
		return fmt.Errorf("marshal sample payload: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE templates
		SET name = $1, description = $2, category = $3, tags = $4,
		    sample_payload = $5, updated_at = $6
		WHERE tenant_id = $7 AND id = $8`,
		t.Name, t.Description, t.Category, tags, sample, t.UpdatedAt, t.TenantID, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewTemplateNotFoundError(t.TenantID, t.ID)
	}
	return nil
}

func (s *PostgresStore) AppendVersion(ctx context.Context, tenantID string, expectedCurrent int, v *models.TemplateVersion) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	channels, err := marshalJSON(v.Channels)
	if err != nil {
		return fmt.Errorf("marshal channels: %w", err)
	}
	variables, err := marshalJSON(v.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}

	// Guarded bump: loses the race -> zero rows -> concurrency conflict.
	res, err := tx.ExecContext(ctx, `
		UPDATE templates
		SET current_version = $1, channels = $2, updated_at = $3
		WHERE tenant_id = $4 AND id = $5 AND current_version = $6`,
		v.Version, channels, v.CreatedAt, tenantID, v.TemplateID, expectedCurrent,
	)
	if err != nil {
		return fmt.Errorf("bump current version: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewConcurrencyConflictError("template",
			fmt.Sprintf("templateId: %s, expected version %d", v.TemplateID, expectedCurrent))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO template_versions
			(template_id, version, content, subject, channels, variables,
			 change_summary, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		v.TemplateID, v.Version, v.Content, v.Subject, channels, variables,
		v.ChangeSummary, v.CreatedBy, v.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConcurrencyConflictError("template",
				fmt.Sprintf("templateId: %s, version %d already exists", v.TemplateID, v.Version))
		}
		return fmt.Errorf("insert version: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) GetVersion(ctx context.Context, tenantID, templateID string, version int) (*models.TemplateVersion, error) {
	var v models.TemplateVersion
	var channels, variables []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT tv.template_id, tv.version, tv.content, tv.subject, tv.channels,
		       tv.variables, tv.change_summary, tv.created_by, tv.created_at
		FROM template_versions tv
		JOIN templates t ON t.id = tv.template_id
		WHERE t.tenant_id = $1 AND tv.template_id = $2 AND tv.version = $3`,
		tenantID, templateID, version,
	).Scan(&v.TemplateID, &v.Version, &v.Content, &v.Subject, &channels,
		&variables, &v.ChangeSummary, &v.CreatedBy, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewVersionNotFoundError(templateID, version)
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}

	if err := unmarshalJSON(channels, &v.Channels); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(variables, &v.Variables); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PostgresStore) ListVersions(ctx context.Context, tenantID, templateID string) ([]*models.TemplateVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tv.template_id, tv.version, tv.content, tv.subject, tv.channels,
		       tv.variables, tv.change_summary, tv.created_by, tv.created_at
		FROM template_versions tv
		JOIN templates t ON t.id = tv.template_id
		WHERE t.tenant_id = $1 AND tv.template_id = $2
		ORDER BY tv.version`,
		tenantID, templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	out := make([]*models.TemplateVersion, 0)
	for rows.Next() {
		var v models.TemplateVersion
		var channels, variables []byte
		if err := rows.Scan(&v.TemplateID, &v.Version, &v.Content, &v.Subject, &channels,
			&variables, &v.ChangeSummary, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		if err := unmarshalJSON(channels, &v.Channels); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(variables, &v.Variables); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// ==========================
// Routes
// ==========================

func (s *PostgresStore) UpsertRoute(ctx context.Context, r *models.Route) error {
	channels, err := marshalJSON(r.Channels)
	if err != nil {
		return fmt.Errorf("marshal route channels: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO routes (id, tenant_id, event_key, channels, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, event_key)
		DO UPDATE SET channels = EXCLUDED.channels, updated_at = EXCLUDED.updated_at`,
		r.ID, r.TenantID, r.EventKey, channels, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert route: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRoute(ctx context.Context, tenantID, eventKey string) (*models.Route, error) {
	var r models.Route
	var channels []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, event_key, channels, created_at, updated_at
		FROM routes WHERE tenant_id = $1 AND event_key = $2`,
		tenantID, eventKey,
	).Scan(&r.ID, &r.TenantID, &r.EventKey, &channels, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewRouteNotFoundError(tenantID, eventKey)
	}
	if err != nil {
		return nil, fmt.Errorf("get route: %w", err)
	}

	if err := unmarshalJSON(channels, &r.Channels); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) DeleteRoute(ctx context.Context, tenantID, eventKey string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM routes WHERE tenant_id = $1 AND event_key = $2`, tenantID, eventKey)
	if err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewRouteNotFoundError(tenantID, eventKey)
	}
	return nil
}

func (s *PostgresStore) ListRoutes(ctx context.Context, tenantID string) ([]*models.Route, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, event_key, channels, created_at, updated_at
		FROM routes WHERE tenant_id = $1 ORDER BY event_key`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Route, 0)
	for rows.Next() {
		var r models.Route
		var channels []byte
		if err := rows.Scan(&r.ID, &r.TenantID, &r.EventKey, &channels, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		if err := unmarshalJSON(channels, &r.Channels); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// ==========================
// Preferences
// ==========================

func (s *PostgresStore) UpsertPreference(ctx context.Context, p *models.Preference) error {
	channels, err := marshalJSON(p.Channels)
	if err != nil {
		return fmt.Errorf("marshal preference channels: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO preferences (tenant_id, user_id, channels, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, user_id)
		DO UPDATE SET channels = EXCLUDED.channels, updated_at = EXCLUDED.updated_at`,
		p.TenantID, p.UserID, channels, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPreference(ctx context.Context, tenantID, userID string) (*models.Preference, error) {
	var p models.Preference
	var channels []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, user_id, channels, updated_at
		FROM preferences WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID,
	).Scan(&p.TenantID, &p.UserID, &channels, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("Preference",
			fmt.Sprintf("tenantId: %s, userId: %s", tenantID, userID))
	}
	if err != nil {
		return nil, fmt.Errorf("get preference: %w", err)
	}

	if err := unmarshalJSON(channels, &p.Channels); err != nil {
		return nil, err
	}
	return &p, nil
}

// ==========================
// Notifications
// ==========================

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	channels, err := marshalJSON(n.Channels)
	if err != nil {
		return fmt.Errorf("marshal channels: %w", err)
	}
	recipients, err := marshalJSON(n.Recipients)
	if err != nil {
		return fmt.Errorf("marshal recipients: %w", err)
	}
	payload, err := marshalJSON(n.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	results, err := marshalJSON(n.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications
			(id, tenant_id, event_key, template_id, channels, recipients, payload,
			 status, attempts, last_attempt_at, delivered_at, last_error,
			 scheduled_for, results, record_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		n.ID, n.TenantID, n.EventKey, nullableString(n.TemplateID), channels, recipients, payload,
		string(n.Status), n.Attempts, n.LastAttemptAt, n.DeliveredAt, n.LastError,
		n.ScheduledFor, results, n.RecordVersion, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const notificationColumns = `id, tenant_id, event_key, template_id, channels,
	recipients, payload, status, attempts, last_attempt_at, delivered_at,
	last_error, scheduled_for, results, record_version, created_at`

func scanNotification(scan func(dest ...interface{}) error) (*models.Notification, error) {
	var n models.Notification
	var templateID sql.NullString
	var status string
	var channels, recipients, payload, results []byte
	var lastAttemptAt, deliveredAt, scheduledFor sql.NullTime

	err := scan(&n.ID, &n.TenantID, &n.EventKey, &templateID, &channels,
		&recipients, &payload, &status, &n.Attempts, &lastAttemptAt, &deliveredAt,
		&n.LastError, &scheduledFor, &results, &n.RecordVersion, &n.CreatedAt)
	if err != nil {
		return nil, err
	}

	n.TemplateID = templateID.String
	n.Status = models.NotificationStatus(status)
	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time
		n.LastAttemptAt = &t
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		n.DeliveredAt = &t
	}
	if scheduledFor.Valid {
		t := scheduledFor.Time
		n.ScheduledFor = &t
	}
	if err := unmarshalJSON(channels, &n.Channels); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(recipients, &n.Recipients); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(payload, &n.Payload); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(results, &n.Results); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *PostgresStore) GetNotification(ctx context.Context, tenantID, id string) (*models.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	n, err := scanNotification(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotificationNotFoundError(tenantID, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ListNotifications(ctx context.Context, tenantID string, status models.NotificationStatus) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListDueNotifications(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE status = 'pending'
		   OR (status = 'scheduled' AND (scheduled_for IS NULL OR scheduled_for <= $1))
		ORDER BY created_at`
	args := []interface{}{now}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateNotificationCAS(ctx context.Context, n *models.Notification, expectedVersion int) error {
	results, err := marshalJSON(n.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = $1, attempts = $2, last_attempt_at = $3, delivered_at = $4,
		    last_error = $5, results = $6, record_version = record_version + 1
		WHERE tenant_id = $7 AND id = $8 AND record_version = $9`,
		string(n.Status), n.Attempts, n.LastAttemptAt, n.DeliveredAt,
		n.LastError, results, n.TenantID, n.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return errors.NewConcurrencyConflictError("notification",
			fmt.Sprintf("notificationId: %s, expected record version %d", n.ID, expectedVersion))
	}
	n.RecordVersion = expectedVersion + 1
	return nil
}

// ==========================
// Inbox
// ==========================

func (s *PostgresStore) CreateInboxEntry(ctx context.Context, e *models.InboxEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inbox_entries
			(id, tenant_id, user_id, notification_id, title, message, severity,
			 read, archived, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.TenantID, e.UserID, nullableString(e.NotificationID), e.Title,
		e.Message, string(e.Severity), e.Read, e.Archived, e.DeliveredAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConflictError("Inbox entry already materialized",
				fmt.Sprintf("tenantId: %s, userId: %s, notificationId: %s", e.TenantID, e.UserID, e.NotificationID))
		}
		return fmt.Errorf("insert inbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListInboxEntries(ctx context.Context, tenantID, userID string, unreadOnly bool) ([]*models.InboxEntry, error) {
	query := `
		SELECT id, tenant_id, user_id, notification_id, title, message, severity,
		       read, archived, delivered_at
		FROM inbox_entries WHERE tenant_id = $1 AND user_id = $2`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY delivered_at DESC`

	rows, err := s.db.QueryContext(ctx, query, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("list inbox entries: %w", err)
	}
	defer rows.Close()

	out := make([]*models.InboxEntry, 0)
	for rows.Next() {
		var e models.InboxEntry
		var notificationID sql.NullString
		var severity string
		if err := rows.Scan(&e.ID, &e.TenantID, &e.UserID, &notificationID, &e.Title,
			&e.Message, &severity, &e.Read, &e.Archived, &e.DeliveredAt); err != nil {
			return nil, fmt.Errorf("scan inbox entry: %w", err)
		}
		e.NotificationID = notificationID.String
		e.Severity = models.Severity(severity)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkInboxEntryRead(ctx context.Context, tenantID, userID, entryID string) error {
	return s.setInboxFlag(ctx, tenantID, userID, entryID, "read")
}

func (s *PostgresStore) ArchiveInboxEntry(ctx context.Context, tenantID, userID, entryID string) error {
	return s.setInboxFlag(ctx, tenantID, userID, entryID, "archived")
}

func (s *PostgresStore) setInboxFlag(ctx context.Context, tenantID, userID, entryID, column string) error {
	// column is one of the two fixed flag names above, never user input.
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE inbox_entries SET %s = TRUE WHERE tenant_id = $1 AND user_id = $2 AND id = $3`, column),
		tenantID, userID, entryID,
	)
	if err != nil {
		return fmt.Errorf("update inbox entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("Inbox entry", fmt.Sprintf("entryId: %s", entryID))
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
