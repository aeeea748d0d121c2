// internal/adapter/webhook.go
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"notify-engine/internal/common/httpx"
	"notify-engine/internal/common/logger"
	"notify-engine/internal/models"
)

// webhookEnvelope is the JSON body POSTed to the recipient's endpoint.
type webhookEnvelope struct {
	NotificationID string                 `json:"notificationId"`
	TenantID       string                 `json:"tenantId"`
	EventKey       string                 `json:"eventKey"`
	Subject        string                 `json:"subject,omitempty"`
	Body           string                 `json:"body"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	SentAt         string                 `json:"sentAt"`
}

// WebhookAdapter POSTs the rendered notification to the recipient's URL.
// Any non-2xx response counts as a failed send.
type WebhookAdapter struct {
	client    *httpx.Client
	userAgent string
	logger    logger.Logger
}

func NewWebhookAdapter(client *httpx.Client, userAgent string, log logger.Logger) *WebhookAdapter {
	return &WebhookAdapter{
		client:    client,
		userAgent: userAgent,
		logger:    log.WithFields(map[string]interface{}{"adapter": "webhook"}),
	}
}

func (a *WebhookAdapter) Channel() models.Channel { return models.ChannelWebhook }

func (a *WebhookAdapter) Send(ctx context.Context, n *models.Notification, rcpt models.Recipient, msg Message) Result {
	if rcpt.WebhookURL == "" {
		return missingFieldResult("webhookUrl")
	}

	body, err := json.Marshal(webhookEnvelope{
		NotificationID: n.ID,
		TenantID:       n.TenantID,
		EventKey:       n.EventKey,
		Subject:        msg.Subject,
		Body:           msg.Body,
		Payload:        n.Payload,
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return failureResult(models.ChannelWebhook, err)
	}

	req, err := http.NewRequest(http.MethodPost, rcpt.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return failureResult(models.ChannelWebhook, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.DoWithContext(ctx, req)
	if err != nil {
		a.logger.Error("webhook send failed", map[string]interface{}{
			"notificationId": n.ID,
			"url":            rcpt.WebhookURL,
			"error":          err,
		})
		return failureResult(models.ChannelWebhook, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		a.logger.Warn("webhook endpoint rejected delivery", map[string]interface{}{
			"notificationId": n.ID,
			"url":            rcpt.WebhookURL,
			"status":         resp.StatusCode,
		})
		return Result{Success: false, Error: fmt.Sprintf("webhook endpoint returned status %d", resp.StatusCode)}
	}

	return successResult(map[string]string{"status": fmt.Sprintf("%d", resp.StatusCode)})
}
