// internal/store/cache.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"notify-engine/internal/common/errors"
	"notify-engine/internal/common/logger"
	"notify-engine/internal/models"
)

// absentMarker is cached for lookups that returned NotFound, so the frequent
// default-allow case (no route configured) does not hit the database on every
// dispatch.
const absentMarker = "__absent__"

// CachingStore wraps a Store with a redis read-through cache on the dispatch
// hot path (routes and preferences). Writes invalidate. Cache failures are
// logged and fall back to the underlying store; the cache is never
// authoritative.
type CachingStore struct {
	Store

	rdb    *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachingStore(inner Store, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachingStore {
	return &CachingStore{
		Store:  inner,
		rdb:    rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "store-cache"}),
	}
}

func routeCacheKey(tenantID, eventKey string) string {
	return fmt.Sprintf("notify:route:%s:%s", tenantID, eventKey)
}

func prefCacheKey(tenantID, userID string) string {
	return fmt.Sprintf("notify:pref:%s:%s", tenantID, userID)
}

func (s *CachingStore) GetRoute(ctx context.Context, tenantID, eventKey string) (*models.Route, error) {
	key := routeCacheKey(tenantID, eventKey)

	if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
		if cached == absentMarker {
			return nil, errors.NewRouteNotFoundError(tenantID, eventKey)
		}
		var r models.Route
		if err := json.Unmarshal([]byte(cached), &r); err == nil {
			return &r, nil
		}
		// Corrupt entry: drop it and fall through to the store.
		s.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		s.logger.Warn("route cache read failed", map[string]interface{}{
			"error": err.Error(), "eventKey": eventKey,
		})
	}

	r, err := s.Store.GetRoute(ctx, tenantID, eventKey)
	if err != nil {
		if errors.IsNotFound(err) {
			s.cacheSet(ctx, key, absentMarker)
		}
		return nil, err
	}

	if data, merr := json.Marshal(r); merr == nil {
		s.cacheSet(ctx, key, string(data))
	}
	return r, nil
}

func (s *CachingStore) UpsertRoute(ctx context.Context, r *models.Route) error {
	if err := s.Store.UpsertRoute(ctx, r); err != nil {
		return err
	}
	s.cacheDel(ctx, routeCacheKey(r.TenantID, r.EventKey))
	return nil
}

func (s *CachingStore) DeleteRoute(ctx context.Context, tenantID, eventKey string) error {
	if err := s.Store.DeleteRoute(ctx, tenantID, eventKey); err != nil {
		return err
	}
	s.cacheDel(ctx, routeCacheKey(tenantID, eventKey))
	return nil
}

func (s *CachingStore) GetPreference(ctx context.Context, tenantID, userID string) (*models.Preference, error) {
	key := prefCacheKey(tenantID, userID)

	if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
		if cached == absentMarker {
			return nil, errors.NewNotFoundError("Preference",
				fmt.Sprintf("tenantId: %s, userId: %s", tenantID, userID))
		}
		var p models.Preference
		if err := json.Unmarshal([]byte(cached), &p); err == nil {
			return &p, nil
		}
		s.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		s.logger.Warn("preference cache read failed", map[string]interface{}{
			"error": err.Error(), "userId": userID,
		})
	}

	p, err := s.Store.GetPreference(ctx, tenantID, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			s.cacheSet(ctx, key, absentMarker)
		}
		return nil, err
	}

	if data, merr := json.Marshal(p); merr == nil {
		s.cacheSet(ctx, key, string(data))
	}
	return p, nil
}

func (s *CachingStore) UpsertPreference(ctx context.Context, p *models.Preference) error {
	if err := s.Store.UpsertPreference(ctx, p); err != nil {
		return err
	}
	s.cacheDel(ctx, prefCacheKey(p.TenantID, p.UserID))
	return nil
}

func (s *CachingStore) cacheSet(ctx context.Context, key, value string) {
	if err := s.rdb.Set(ctx, key, value, s.ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", map[string]interface{}{
			"error": err.Error(), "key": key,
		})
	}
}

func (s *CachingStore) cacheDel(ctx context.Context, key string) {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", map[string]interface{}{
			"error": err.Error(), "key": key,
		})
	}
}

var _ Store = (*CachingStore)(nil)
