// internal/routing/resolver_test.go
package routing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-engine/internal/common/logger"
	"notify-engine/internal/models"
	"notify-engine/internal/store"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestIsSuppressed(t *testing.T) {
	tests := []struct {
		name       string
		window     *models.QuietHours
		now        time.Time
		suppressed bool
	}{
		{"nil window", nil, at(12, 0), false},
		{"same-day window inside", &models.QuietHours{Start: "09:00", End: "17:00"}, at(12, 0), true},
		{"same-day window at start", &models.QuietHours{Start: "09:00", End: "17:00"}, at(9, 0), true},
		{"same-day window at end is open", &models.QuietHours{Start: "09:00", End: "17:00"}, at(17, 0), false},
		{"same-day window outside", &models.QuietHours{Start: "09:00", End: "17:00"}, at(20, 0), false},
		{"wrapping window late evening", &models.QuietHours{Start: "22:00", End: "06:00"}, at(23, 0), true},
		{"wrapping window early morning", &models.QuietHours{Start: "22:00", End: "06:00"}, at(2, 0), true},
		{"wrapping window daytime", &models.QuietHours{Start: "22:00", End: "06:00"}, at(10, 0), false},
		{"wrapping window at end is open", &models.QuietHours{Start: "22:00", End: "06:00"}, at(6, 0), false},
		{"empty window", &models.QuietHours{Start: "08:00", End: "08:00"}, at(8, 0), false},
		{"unparseable window never suppresses", &models.QuietHours{Start: "late", End: "later"}, at(12, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.suppressed, IsSuppressed(tt.window, tt.now))
		})
	}
}

func newTestResolver(t *testing.T) (*Resolver, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return NewResolver(st, logger.NewTestLogger(t)), st
}

func seedRoute(t *testing.T, r *Resolver, route *models.Route) {
	t.Helper()
	require.NoError(t, r.UpsertRoute(context.Background(), route))
}

func TestResolveNoRouteDefaultAllow(t *testing.T) {
	r, _ := newTestResolver(t)

	requested := []models.Channel{models.ChannelEmail, models.ChannelSMS}
	got, err := r.Resolve(context.Background(), "acme", "order.shipped", requested, at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, requested, got)
}

func TestResolveDisabledChannelDropped(t *testing.T) {
	r, _ := newTestResolver(t)
	seedRoute(t, r, &models.Route{
		TenantID: "acme",
		EventKey: "order.shipped",
		Channels: []models.ChannelRoute{
			{Channel: models.ChannelEmail, Enabled: false},
			{Channel: models.ChannelSMS, Enabled: true},
		},
	})

	got, err := r.Resolve(context.Background(), "acme", "order.shipped",
		[]models.Channel{models.ChannelEmail, models.ChannelSMS}, at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, []models.Channel{models.ChannelSMS}, got)
}

func TestResolveUnmentionedChannelPassesThrough(t *testing.T) {
	r, _ := newTestResolver(t)
	seedRoute(t, r, &models.Route{
		TenantID: "acme",
		EventKey: "order.shipped",
		Channels: []models.ChannelRoute{
			{Channel: models.ChannelEmail, Enabled: true},
		},
	})

	got, err := r.Resolve(context.Background(), "acme", "order.shipped",
		[]models.Channel{models.ChannelEmail, models.ChannelInApp}, at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, []models.Channel{models.ChannelEmail, models.ChannelInApp}, got)
}

func TestResolveQuietHoursFallback(t *testing.T) {
	night := &models.QuietHours{Start: "22:00", End: "06:00"}

	tests := []struct {
		name     string
		channels []models.ChannelRoute
		now      time.Time
		expected []models.Channel
	}{
		{
			name: "suppressed primary degrades to enabled fallback",
			channels: []models.ChannelRoute{
				{Channel: models.ChannelEmail, Enabled: true, QuietHours: night, Fallback: []models.Channel{models.ChannelSMS}},
				{Channel: models.ChannelSMS, Enabled: true},
			},
			now:      at(23, 0),
			expected: []models.Channel{models.ChannelSMS},
		},
		{
			name: "fallback also suppressed drops the channel",
			channels: []models.ChannelRoute{
				{Channel: models.ChannelEmail, Enabled: true, QuietHours: night, Fallback: []models.Channel{models.ChannelSMS}},
				{Channel: models.ChannelSMS, Enabled: true, QuietHours: night},
			},
			now:      at(23, 0),
			expected: nil,
		},
		{
			name: "fallback disabled drops the channel",
			channels: []models.ChannelRoute{
				{Channel: models.ChannelEmail, Enabled: true, QuietHours: night, Fallback: []models.Channel{models.ChannelSMS}},
				{Channel: models.ChannelSMS, Enabled: false},
			},
			now:      at(23, 0),
			expected: nil,
		},
		{
			name: "first eligible fallback wins in declaration order",
			channels: []models.ChannelRoute{
				{Channel: models.ChannelEmail, Enabled: true, QuietHours: night, Fallback: []models.Channel{models.ChannelSMS, models.ChannelWebhook}},
				{Channel: models.ChannelSMS, Enabled: false},
				{Channel: models.ChannelWebhook, Enabled: true},
			},
			now:      at(23, 0),
			expected: []models.Channel{models.ChannelWebhook},
		},
		{
			name: "outside quiet hours the primary is kept",
			channels: []models.ChannelRoute{
				{Channel: models.ChannelEmail, Enabled: true, QuietHours: night, Fallback: []models.Channel{models.ChannelSMS}},
				{Channel: models.ChannelSMS, Enabled: true},
			},
			now:      at(10, 0),
			expected: []models.Channel{models.ChannelEmail},
		},
		{
			name: "unconfigured fallback counts as eligible",
			channels: []models.ChannelRoute{
				{Channel: models.ChannelEmail, Enabled: true, QuietHours: night, Fallback: []models.Channel{models.ChannelInApp}},
			},
			now:      at(23, 0),
			expected: []models.Channel{models.ChannelInApp},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResolver(t)
			seedRoute(t, r, &models.Route{TenantID: "acme", EventKey: "alert", Channels: tt.channels})

			got, err := r.Resolve(context.Background(), "acme", "alert",
				[]models.Channel{models.ChannelEmail}, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveFallbackDoesNotDuplicate(t *testing.T) {
	night := &models.QuietHours{Start: "22:00", End: "06:00"}
	r, _ := newTestResolver(t)
	seedRoute(t, r, &models.Route{
		TenantID: "acme",
		EventKey: "alert",
		Channels: []models.ChannelRoute{
			{Channel: models.ChannelEmail, Enabled: true, QuietHours: night, Fallback: []models.Channel{models.ChannelSMS}},
			{Channel: models.ChannelSMS, Enabled: true},
		},
	})

	got, err := r.Resolve(context.Background(), "acme", "alert",
		[]models.Channel{models.ChannelSMS, models.ChannelEmail}, at(23, 0))
	require.NoError(t, err)
	assert.Equal(t, []models.Channel{models.ChannelSMS}, got)
}

func TestUpsertRouteValidation(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		route *models.Route
	}{
		{
			name:  "missing event key",
			route: &models.Route{TenantID: "acme"},
		},
		{
			name: "unknown channel",
			route: &models.Route{
				TenantID: "acme", EventKey: "alert",
				Channels: []models.ChannelRoute{{Channel: "pigeon", Enabled: true}},
			},
		},
		{
			name: "bad quiet hours",
			route: &models.Route{
				TenantID: "acme", EventKey: "alert",
				Channels: []models.ChannelRoute{{
					Channel: models.ChannelEmail, Enabled: true,
					QuietHours: &models.QuietHours{Start: "25:00", End: "06:00"},
				}},
			},
		},
		{
			name: "unknown fallback channel",
			route: &models.Route{
				TenantID: "acme", EventKey: "alert",
				Channels: []models.ChannelRoute{{
					Channel: models.ChannelEmail, Enabled: true,
					Fallback: []models.Channel{"pigeon"},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, r.UpsertRoute(ctx, tt.route))
		})
	}
}

func TestRouteCRUD(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	seedRoute(t, r, &models.Route{
		TenantID: "acme", EventKey: "alert",
		Channels: []models.ChannelRoute{{Channel: models.ChannelEmail, Enabled: true}},
	})

	got, err := r.GetRoute(ctx, "acme", "alert")
	require.NoError(t, err)
	assert.Equal(t, "alert", got.EventKey)

	routes, err := r.ListRoutes(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, routes, 1)

	require.NoError(t, r.DeleteRoute(ctx, "acme", "alert"))
	_, err = r.GetRoute(ctx, "acme", "alert")
	assert.Error(t, err)
}
