// internal/routing/resolver.go
package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"notify-engine/internal/common/errors"
	"notify-engine/internal/common/logger"
	"notify-engine/internal/models"
	"notify-engine/internal/store"
)

// Resolver maps (tenant, event key) to the channels a notification may use
// right now, applying per-channel enablement, quiet hours, and one level of
// fallback substitution.
type Resolver struct {
	store  store.RouteStore
	logger logger.Logger
}

func NewResolver(st store.RouteStore, log logger.Logger) *Resolver {
	return &Resolver{
		store:  st,
		logger: log.WithFields(map[string]interface{}{"component": "routing"}),
	}
}

// Resolve returns the ordered channel list for the event at the given
// wall-clock time. A missing route means default-allow: the requested
// channels pass through unfiltered.
func (r *Resolver) Resolve(ctx context.Context, tenantID, eventKey string, requested []models.Channel, now time.Time) ([]models.Channel, error) {
	route, err := r.store.GetRoute(ctx, tenantID, eventKey)
	if err != nil {
		if errors.IsNotFound(err) {
			return requested, nil
		}
		return nil, err
	}

	var resolved []models.Channel
	for _, ch := range requested {
		cfg := route.ChannelConfig(ch)
		if cfg == nil {
			// Channels the route does not mention pass through.
			resolved = append(resolved, ch)
			continue
		}
		if !cfg.Enabled {
			r.logger.Debug("channel disabled by route", map[string]interface{}{
				"tenantId": tenantID,
				"eventKey": eventKey,
				"channel":  ch,
			})
			continue
		}
		if !IsSuppressed(cfg.QuietHours, now) {
			resolved = append(resolved, ch)
			continue
		}

		// Quiet-suppressed: walk the primary channel's fallback list one
		// level deep. The first enabled, non-suppressed entry wins.
		substitute, ok := r.pickFallback(route, cfg.Fallback, now)
		if !ok {
			r.logger.Debug("channel suppressed with no eligible fallback", map[string]interface{}{
				"tenantId": tenantID,
				"eventKey": eventKey,
				"channel":  ch,
			})
			continue
		}
		if !models.ContainsChannel(resolved, substitute) {
			resolved = append(resolved, substitute)
		}
	}
	return resolved, nil
}

// pickFallback scans the declared fallback order and returns the first
// channel that is enabled and outside its own quiet window. Fallback
// channels' own fallback lists are never followed.
func (r *Resolver) pickFallback(route *models.Route, fallback []models.Channel, now time.Time) (models.Channel, bool) {
	for _, fb := range fallback {
		cfg := route.ChannelConfig(fb)
		if cfg == nil {
			// Unconfigured fallback channels count as enabled with no
			// quiet hours.
			return fb, true
		}
		if cfg.Enabled && !IsSuppressed(cfg.QuietHours, now) {
			return fb, true
		}
	}
	return "", false
}

// ==========================
// Route administration
// ==========================

func (r *Resolver) UpsertRoute(ctx context.Context, route *models.Route) error {
	if route.EventKey == "" {
		return errors.NewBadRequestError("Route event key is required", "")
	}
	for _, cfg := range route.Channels {
		if !models.IsValidChannel(cfg.Channel) {
			return errors.NewBadRequestError("Unknown channel in route", fmt.Sprintf("channel: %s", cfg.Channel))
		}
		if err := ValidateQuietHours(cfg.QuietHours); err != nil {
			return err
		}
		for _, fb := range cfg.Fallback {
			if !models.IsValidChannel(fb) {
				return errors.NewBadRequestError("Unknown fallback channel in route", fmt.Sprintf("channel: %s", fb))
			}
		}
	}
	now := time.Now().UTC()
	if route.ID == "" {
		route.ID = uuid.New().String()
	}
	if route.CreatedAt.IsZero() {
		route.CreatedAt = now
	}
	route.UpdatedAt = now
	if err := r.store.UpsertRoute(ctx, route); err != nil {
		return err
	}
	r.logger.Info("route upserted", map[string]interface{}{
		"tenantId": route.TenantID,
		"eventKey": route.EventKey,
		"channels": len(route.Channels),
	})
	return nil
}

func (r *Resolver) GetRoute(ctx context.Context, tenantID, eventKey string) (*models.Route, error) {
	return r.store.GetRoute(ctx, tenantID, eventKey)
}

func (r *Resolver) ListRoutes(ctx context.Context, tenantID string) ([]*models.Route, error) {
	return r.store.ListRoutes(ctx, tenantID)
}

func (r *Resolver) DeleteRoute(ctx context.Context, tenantID, eventKey string) error {
	if err := r.store.DeleteRoute(ctx, tenantID, eventKey); err != nil {
		return err
	}
	r.logger.Info("route deleted", map[string]interface{}{
		"tenantId": tenantID,
		"eventKey": eventKey,
	})
	return nil
}
