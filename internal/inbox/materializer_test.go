// internal/inbox/materializer_test.go
package inbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-engine/internal/common/logger"
	"notify-engine/internal/models"
	"notify-engine/internal/store"
)

func newTestMaterializer(t *testing.T) *Materializer {
	return NewMaterializer(store.NewMemoryStore(), logger.NewTestLogger(t))
}

func notification(payload map[string]interface{}) *models.Notification {
	return &models.Notification{
		ID:       "n-1",
		TenantID: "acme",
		EventKey: "order.shipped",
		Payload:  payload,
	}
}

func TestMaterialize(t *testing.T) {
	m := newTestMaterializer(t)
	ctx := context.Background()

	entry, err := m.Materialize(ctx, notification(nil), "u1", "Order shipped", "Your order is on its way")
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "n-1", entry.NotificationID)
	assert.Equal(t, models.SeverityInfo, entry.Severity, "severity defaults to info")
	assert.False(t, entry.Read)
	assert.False(t, entry.Archived)
	assert.False(t, entry.DeliveredAt.IsZero())
}

func TestMaterializeSeverityFromPayload(t *testing.T) {
	m := newTestMaterializer(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		payload  map[string]interface{}
		expected models.Severity
	}{
		{"explicit critical", map[string]interface{}{"severity": "critical"}, models.SeverityCritical},
		{"explicit warning", map[string]interface{}{"severity": "warning"}, models.SeverityWarning},
		{"unknown level falls back to info", map[string]interface{}{"severity": "panic"}, models.SeverityInfo},
		{"non-string severity falls back to info", map[string]interface{}{"severity": 5}, models.SeverityInfo},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := notification(tt.payload)
			n.ID = n.ID + string(rune('a'+i))
			entry, err := m.Materialize(ctx, n, "u1", "t", "m")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, entry.Severity)
		})
	}
}

func TestMaterializeIdempotentPerNotification(t *testing.T) {
	m := newTestMaterializer(t)
	ctx := context.Background()

	n := notification(nil)
	_, err := m.Materialize(ctx, n, "u1", "t", "m")
	require.NoError(t, err)

	// A retry cycle must not create a second entry.
	_, err = m.Materialize(ctx, n, "u1", "t", "m")
	require.NoError(t, err)

	entries, err := m.List(ctx, "acme", "u1", false)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// A different recipient of the same notification gets their own entry.
	_, err = m.Materialize(ctx, n, "u2", "t", "m")
	require.NoError(t, err)
	entries, err = m.List(ctx, "acme", "u2", false)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMaterializeRequiresUserID(t *testing.T) {
	m := newTestMaterializer(t)
	_, err := m.Materialize(context.Background(), notification(nil), "", "t", "m")
	assert.Error(t, err)
}

func TestReadAndArchiveFlags(t *testing.T) {
	m := newTestMaterializer(t)
	ctx := context.Background()

	entry, err := m.Materialize(ctx, notification(nil), "u1", "t", "m")
	require.NoError(t, err)

	require.NoError(t, m.MarkRead(ctx, "acme", "u1", entry.ID))

	unread, err := m.List(ctx, "acme", "u1", true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := m.List(ctx, "acme", "u1", false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Read)

	require.NoError(t, m.Archive(ctx, "acme", "u1", entry.ID))
	all, err = m.List(ctx, "acme", "u1", false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Archived)
}
