// internal/dispatch/coordinator.go
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"notify-engine/internal/adapter"
	"notify-engine/internal/common/errors"
	"notify-engine/internal/common/logger"
	"notify-engine/internal/common/metrics"
	"notify-engine/internal/inbox"
	"notify-engine/internal/models"
	"notify-engine/internal/preference"
	"notify-engine/internal/routing"
	"notify-engine/internal/store"
	"notify-engine/internal/template"
)

// Coordinator orchestrates a notification's delivery lifecycle: route
// resolution, per-recipient preference filtering, rendering, concurrent
// fan-out to adapters and the inbox materializer, and outcome aggregation.
// All status transitions go through the store's compare-and-swap so an
// overlapping retry can never revert a terminal state.
type Coordinator struct {
	store        store.NotificationStore
	templates    *template.Service
	resolver     *routing.Resolver
	filter       *preference.Filter
	registry     *adapter.Registry
	materializer *inbox.Materializer
	logger       logger.Logger

	sendTimeout        time.Duration
	maxConcurrentSends int
}

func NewCoordinator(
	st store.NotificationStore,
	templates *template.Service,
	resolver *routing.Resolver,
	filter *preference.Filter,
	registry *adapter.Registry,
	materializer *inbox.Materializer,
	log logger.Logger,
	sendTimeout time.Duration,
	maxConcurrentSends int,
) *Coordinator {
	if maxConcurrentSends < 1 {
		maxConcurrentSends = 1
	}
	return &Coordinator{
		store:              st,
		templates:          templates,
		resolver:           resolver,
		filter:             filter,
		registry:           registry,
		materializer:       materializer,
		logger:             log.WithFields(map[string]interface{}{"component": "dispatch"}),
		sendTimeout:        sendTimeout,
		maxConcurrentSends: maxConcurrentSends,
	}
}

// CreateInput describes one dispatch request.
type CreateInput struct {
	EventKey     string                 `json:"eventKey"`
	TemplateID   string                 `json:"templateId,omitempty"`
	Channels     []models.Channel       `json:"channels"`
	Recipients   []models.Recipient     `json:"recipients"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	ScheduledFor *time.Time             `json:"scheduledFor,omitempty"`
}

// Create persists a new notification in pending state, or scheduled when a
// future send time is requested. The timer that later triggers dispatch is
// an external scheduling concern.
func (c *Coordinator) Create(ctx context.Context, tenantID string, input CreateInput) (*models.Notification, error) {
	if input.EventKey == "" {
		return nil, errors.NewBadRequestError("Notification event key is required", "")
	}
	if len(input.Channels) == 0 {
		return nil, errors.NewBadRequestError("Notification requires at least one channel", "")
	}
	if len(input.Recipients) == 0 {
		return nil, errors.NewBadRequestError("Notification requires at least one recipient", "")
	}
	for _, ch := range input.Channels {
		if !models.IsValidChannel(ch) {
			return nil, errors.NewBadRequestError("Unknown channel", fmt.Sprintf("channel: %s", ch))
		}
	}

	now := time.Now().UTC()
	status := models.StatusPending
	if input.ScheduledFor != nil && input.ScheduledFor.After(now) {
		status = models.StatusScheduled
	}

	n := &models.Notification{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		EventKey:     input.EventKey,
		TemplateID:   input.TemplateID,
		Channels:     input.Channels,
		Recipients:   input.Recipients,
		Payload:      input.Payload,
		Status:       status,
		ScheduledFor: input.ScheduledFor,
		CreatedAt:    now,
	}
	if err := c.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}

	c.logger.Info("notification created", map[string]interface{}{
		"tenantId":       tenantID,
		"notificationId": n.ID,
		"eventKey":       n.EventKey,
		"status":         n.Status,
	})
	return n, nil
}

// Get loads one notification.
func (c *Coordinator) Get(ctx context.Context, tenantID, id string) (*models.Notification, error) {
	return c.store.GetNotification(ctx, tenantID, id)
}

// List returns a tenant's notifications, optionally filtered by status.
func (c *Coordinator) List(ctx context.Context, tenantID string, status models.NotificationStatus) ([]*models.Notification, error) {
	return c.store.ListNotifications(ctx, tenantID, status)
}

// Cancel moves a non-terminal notification to cancelled. Already-dispatched
// adapter calls are not interrupted.
func (c *Coordinator) Cancel(ctx context.Context, tenantID, id string) (*models.Notification, error) {
	n, err := c.store.GetNotification(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if n.Status.IsTerminal() {
		return nil, errors.NewInvalidStatusTransitionError(string(n.Status), string(models.StatusCancelled))
	}

	expected := n.RecordVersion
	n.Status = models.StatusCancelled
	if err := c.store.UpdateNotificationCAS(ctx, n, expected); err != nil {
		return nil, err
	}

	c.logger.Info("notification cancelled", map[string]interface{}{
		"tenantId":       tenantID,
		"notificationId": id,
	})
	return n, nil
}

// sendTask is one (recipient, channel) unit of work within a cycle.
type sendTask struct {
	recipient models.Recipient
	channel   models.Channel
}

// Dispatch runs one dispatch cycle on the notification. Attempts increments
// exactly once per cycle regardless of fan-out width. A concurrency conflict
// means another cycle or a cancellation won the race; the caller re-reads
// and decides whether to retry.
func (c *Coordinator) Dispatch(ctx context.Context, tenantID, id string) (*models.Notification, error) {
	n, err := c.store.GetNotification(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if n.Status.IsTerminal() && n.Status != models.StatusFailed {
		return nil, errors.NewInvalidStatusTransitionError(string(n.Status), string(models.StatusSending))
	}

	cycleStart := time.Now().UTC()
	timer := metrics.DispatchCycleDuration.WithLabelValues(tenantID)
	defer func() { timer.Observe(time.Since(cycleStart).Seconds()) }()

	expected := n.RecordVersion
	n.Status = models.StatusSending
	n.Attempts++
	n.LastAttemptAt = &cycleStart
	if err := c.store.UpdateNotificationCAS(ctx, n, expected); err != nil {
		metrics.DispatchCyclesTotal.WithLabelValues("conflict").Inc()
		return nil, err
	}

	results, err := c.runCycle(ctx, n, cycleStart)
	if err != nil {
		// Rendering or routing broke before any send; the cycle fails as a
		// whole.
		n.LastError = err.Error()
		return c.finishCycle(ctx, n, false, err)
	}

	anySuccess := false
	for _, r := range results {
		outcome := "failure"
		if r.Success {
			anySuccess = true
			outcome = "success"
		} else {
			n.LastError = r.Error
		}
		metrics.SendsTotal.WithLabelValues(string(r.Channel), outcome).Inc()
		n.Results = append(n.Results, r)
	}

	return c.finishCycle(ctx, n, anySuccess, nil)
}

// finishCycle applies the terminal transition for this cycle and records the
// cycle metric. The original cycleErr, if any, is returned alongside the
// updated record so callers see why the cycle failed.
func (c *Coordinator) finishCycle(ctx context.Context, n *models.Notification, delivered bool, cycleErr error) (*models.Notification, error) {
	expected := n.RecordVersion
	if delivered {
		now := time.Now().UTC()
		n.Status = models.StatusDelivered
		n.DeliveredAt = &now
	} else {
		n.Status = models.StatusFailed
	}

	if err := c.store.UpdateNotificationCAS(ctx, n, expected); err != nil {
		metrics.DispatchCyclesTotal.WithLabelValues("conflict").Inc()
		return nil, err
	}
	metrics.DispatchCyclesTotal.WithLabelValues(string(n.Status)).Inc()

	c.logger.Info("dispatch cycle finished", map[string]interface{}{
		"tenantId":       n.TenantID,
		"notificationId": n.ID,
		"status":         n.Status,
		"attempts":       n.Attempts,
		"sends":          len(n.Results),
	})
	return n, cycleErr
}

// runCycle resolves, filters, renders, and fans out. It returns one result
// per attempted (recipient, channel) pair; an error instead means the cycle
// could not even begin sending.
func (c *Coordinator) runCycle(ctx context.Context, n *models.Notification, now time.Time) ([]models.SendResultRecord, error) {
	resolved, err := c.resolver.Resolve(ctx, n.TenantID, n.EventKey, n.Channels, now)
	if err != nil {
		return nil, err
	}

	msg, err := c.renderContent(ctx, n)
	if err != nil {
		return nil, err
	}

	var tasks []sendTask
	for _, rcpt := range n.Recipients {
		channels, err := c.filter.Apply(ctx, n.TenantID, rcpt.UserID, resolved, now)
		if err != nil {
			return nil, err
		}
		for _, ch := range channels {
			if ch == models.ChannelInApp && rcpt.UserID == "" {
				// Anonymous recipients have no inbox.
				continue
			}
			tasks = append(tasks, sendTask{recipient: rcpt, channel: ch})
		}
	}

	if len(tasks) == 0 {
		return nil, errors.NewBadRequestError(
			"No deliverable channel remains after routing and preference filtering",
			fmt.Sprintf("notificationId: %s", n.ID))
	}

	return c.fanOut(ctx, n, tasks, msg), nil
}

// renderContent produces the message for this cycle: the referenced
// template's current version rendered against the payload, or the payload's
// own title/message fields when no template is referenced.
func (c *Coordinator) renderContent(ctx context.Context, n *models.Notification) (adapter.Message, error) {
	if n.TemplateID == "" {
		return adapter.Message{
			Subject: payloadString(n.Payload, "title"),
			Body:    payloadString(n.Payload, "message"),
		}, nil
	}

	out, err := c.templates.Preview(ctx, n.TenantID, template.PreviewInput{
		TemplateID: n.TemplateID,
		Data:       n.Payload,
	})
	if err != nil {
		return adapter.Message{}, err
	}
	return adapter.Message{Subject: out.Subject, Body: out.Content}, nil
}

func payloadString(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}

// fanOut runs the send tasks concurrently, bounded by maxConcurrentSends,
// each under its own timeout. Sends are side-effect isolated, so the only
// coordination is collecting results.
func (c *Coordinator) fanOut(ctx context.Context, n *models.Notification, tasks []sendTask, msg adapter.Message) []models.SendResultRecord {
	results := make([]models.SendResultRecord, len(tasks))
	sem := make(chan struct{}, c.maxConcurrentSends)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task sendTask) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := c.runSend(ctx, n, task, msg)
			results[i] = models.SendResultRecord{
				Attempt:   n.Attempts,
				Recipient: recipientLabel(task.recipient),
				Channel:   task.channel,
				Success:   res.Success,
				Error:     res.Error,
				At:        time.Now().UTC(),
			}
		}(i, task)
	}
	wg.Wait()
	return results
}

// runSend executes one (recipient, channel) delivery. A timeout counts as an
// ordinary adapter failure, never a crash.
func (c *Coordinator) runSend(ctx context.Context, n *models.Notification, task sendTask, msg adapter.Message) adapter.Result {
	sendCtx := ctx
	if c.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
	}

	if task.channel == models.ChannelInApp {
		title := msg.Subject
		if title == "" {
			title = n.EventKey
		}
		if _, err := c.materializer.Materialize(sendCtx, n, task.recipient.UserID, title, msg.Body); err != nil {
			return adapter.Result{Success: false, Error: err.Error()}
		}
		return adapter.Result{Success: true}
	}

	a, err := c.registry.Get(task.channel)
	if err != nil {
		// A missing adapter is a contract violation; the channel fails
		// loudly instead of being skipped.
		return adapter.Result{Success: false, Error: err.Error()}
	}
	return a.Send(sendCtx, n, task.recipient, msg)
}

// recipientLabel identifies a recipient in the result log: the user id when
// known, else whichever contact field the recipient carries.
func recipientLabel(r models.Recipient) string {
	switch {
	case r.UserID != "":
		return r.UserID
	case r.Email != "":
		return r.Email
	case r.Phone != "":
		return r.Phone
	case r.WebhookURL != "":
		return r.WebhookURL
	}
	return "unknown"
}
