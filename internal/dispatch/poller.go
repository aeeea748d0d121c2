// internal/dispatch/poller.go
package dispatch

import (
	"context"
	"time"

	"notify-engine/internal/common/errors"
	"notify-engine/internal/common/logger"
	"notify-engine/internal/store"
)

// Poller drives the coordinator from the database: on every tick it picks up
// pending notifications and scheduled ones whose send time has arrived, and
// runs a dispatch cycle for each. Failed notifications are left for the next
// external retry trigger rather than re-queued here.
type Poller struct {
	store       store.NotificationStore
	coordinator *Coordinator
	logger      logger.Logger

	interval  time.Duration
	batchSize int
}

func NewPoller(st store.NotificationStore, c *Coordinator, log logger.Logger, interval time.Duration, batchSize int) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize < 1 {
		batchSize = 50
	}
	return &Poller{
		store:       st,
		coordinator: c,
		logger:      log.WithFields(map[string]interface{}{"component": "dispatch-poller"}),
		interval:    interval,
		batchSize:   batchSize,
	}
}

// Run blocks until ctx is cancelled, polling on the configured interval. A
// cycle that loses the status CAS to a concurrent dispatcher is skipped
// silently; the winner owns that notification.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Dispatch poller started", map[string]interface{}{
		"interval":  p.interval.String(),
		"batchSize": p.batchSize,
	})

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Dispatch poller stopped", nil)
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	due, err := p.store.ListDueNotifications(ctx, time.Now().UTC(), p.batchSize)
	if err != nil {
		p.logger.Error("Failed to list due notifications", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	for _, n := range due {
		if ctx.Err() != nil {
			return
		}
		if _, err := p.coordinator.Dispatch(ctx, n.TenantID, n.ID); err != nil {
			if errors.IsConcurrencyConflict(err) {
				continue
			}
			p.logger.Warn("Dispatch cycle failed", map[string]interface{}{
				"tenantId":       n.TenantID,
				"notificationId": n.ID,
				"error":          err.Error(),
			})
		}
	}
}
