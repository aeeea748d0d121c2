// internal/store/cache_test.go
package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-engine/internal/common/errors"
	"notify-engine/internal/common/logger"
	"notify-engine/internal/models"
)

func newCachingStore(t *testing.T) (*CachingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewCachingStore(NewMemoryStore(), rdb, time.Minute, logger.NewTestLogger(t)), mr
}

func TestCachingStoreRouteReadThrough(t *testing.T) {
	s, mr := newCachingStore(t)
	ctx := context.Background()

	route := &models.Route{
		TenantID: "acme", EventKey: "alert",
		Channels: []models.ChannelRoute{{Channel: models.ChannelEmail, Enabled: true}},
	}
	require.NoError(t, s.UpsertRoute(ctx, route))

	// First read populates the cache.
	got, err := s.GetRoute(ctx, "acme", "alert")
	require.NoError(t, err)
	assert.Equal(t, "alert", got.EventKey)
	assert.True(t, mr.Exists(routeCacheKey("acme", "alert")))

	// Second read is served from the cache even if the backing store loses
	// the record.
	require.NoError(t, s.Store.DeleteRoute(ctx, "acme", "alert"))
	got, err = s.GetRoute(ctx, "acme", "alert")
	require.NoError(t, err)
	assert.Equal(t, "alert", got.EventKey)
}

func TestCachingStoreNegativeCaching(t *testing.T) {
	s, mr := newCachingStore(t)
	ctx := context.Background()

	_, err := s.GetRoute(ctx, "acme", "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	cached, err := mr.Get(routeCacheKey("acme", "ghost"))
	require.NoError(t, err)
	assert.Equal(t, absentMarker, cached)

	// The marker keeps serving NotFound without touching the store.
	_, err = s.GetRoute(ctx, "acme", "ghost")
	assert.True(t, errors.IsNotFound(err))
}

func TestCachingStoreWriteInvalidation(t *testing.T) {
	s, mr := newCachingStore(t)
	ctx := context.Background()

	route := &models.Route{
		TenantID: "acme", EventKey: "alert",
		Channels: []models.ChannelRoute{{Channel: models.ChannelEmail, Enabled: true}},
	}
	require.NoError(t, s.UpsertRoute(ctx, route))
	_, err := s.GetRoute(ctx, "acme", "alert")
	require.NoError(t, err)
	require.True(t, mr.Exists(routeCacheKey("acme", "alert")))

	route.Channels[0].Enabled = false
	require.NoError(t, s.UpsertRoute(ctx, route))
	assert.False(t, mr.Exists(routeCacheKey("acme", "alert")), "upsert invalidates")

	got, err := s.GetRoute(ctx, "acme", "alert")
	require.NoError(t, err)
	assert.False(t, got.Channels[0].Enabled)

	require.NoError(t, s.DeleteRoute(ctx, "acme", "alert"))
	assert.False(t, mr.Exists(routeCacheKey("acme", "alert")), "delete invalidates")
}

func TestCachingStoreCorruptEntryFallsBack(t *testing.T) {
	s, mr := newCachingStore(t)
	ctx := context.Background()

	route := &models.Route{
		TenantID: "acme", EventKey: "alert",
		Channels: []models.ChannelRoute{{Channel: models.ChannelEmail, Enabled: true}},
	}
	require.NoError(t, s.UpsertRoute(ctx, route))

	require.NoError(t, mr.Set(routeCacheKey("acme", "alert"), "{not json"))

	got, err := s.GetRoute(ctx, "acme", "alert")
	require.NoError(t, err)
	assert.Equal(t, "alert", got.EventKey)
}

func TestCachingStorePreference(t *testing.T) {
	s, mr := newCachingStore(t)
	ctx := context.Background()

	pref := &models.Preference{
		TenantID: "acme", UserID: "u1",
		Channels: map[models.Channel]models.ChannelPreference{
			models.ChannelEmail: {Enabled: false},
		},
	}
	require.NoError(t, s.UpsertPreference(ctx, pref))

	got, err := s.GetPreference(ctx, "acme", "u1")
	require.NoError(t, err)
	assert.False(t, got.Channels[models.ChannelEmail].Enabled)
	assert.True(t, mr.Exists(prefCacheKey("acme", "u1")))

	// Upsert invalidates the cached copy.
	pref.Channels[models.ChannelEmail] = models.ChannelPreference{Enabled: true}
	require.NoError(t, s.UpsertPreference(ctx, pref))
	assert.False(t, mr.Exists(prefCacheKey("acme", "u1")))

	got, err = s.GetPreference(ctx, "acme", "u1")
	require.NoError(t, err)
	assert.True(t, got.Channels[models.ChannelEmail].Enabled)
}

func TestCachingStoreRedisDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	s := NewCachingStore(NewMemoryStore(), rdb, time.Minute, logger.NewNoOpLogger())
	ctx := context.Background()

	route := &models.Route{
		TenantID: "acme", EventKey: "alert",
		Channels: []models.ChannelRoute{{Channel: models.ChannelEmail, Enabled: true}},
	}
	require.NoError(t, s.UpsertRoute(ctx, route))

	mr.Close()

	got, err := s.GetRoute(ctx, "acme", "alert")
	require.NoError(t, err, "cache outage degrades to the backing store")
	assert.Equal(t, "alert", got.EventKey)
}
