// internal/models/notification.go
package models

import "time"

// NotificationStatus is the delivery lifecycle state.
// pending -> scheduled -> sending -> {delivered | failed}; any non-terminal
// state may move to cancelled on explicit cancellation.
type NotificationStatus string

const (
	StatusPending   NotificationStatus = "pending"
	StatusScheduled NotificationStatus = "scheduled"
	StatusSending   NotificationStatus = "sending"
	StatusDelivered NotificationStatus = "delivered"
	StatusFailed    NotificationStatus = "failed"
	StatusCancelled NotificationStatus = "cancelled"
)

// IsTerminal reports whether s is a terminal lifecycle state.
func (s NotificationStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusFailed || s == StatusCancelled
}

// Recipient carries only the fields relevant to the channels it will use.
// A recipient without a UserID is anonymous: it skips the preference filter
// and cannot receive in_app deliveries.
type Recipient struct {
	UserID     string `json:"userId,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	WebhookURL string `json:"webhookUrl,omitempty"`
	Name       string `json:"name,omitempty"`
}

// SendResultRecord is one (recipient, channel) outcome from a dispatch cycle.
type SendResultRecord struct {
	Attempt   int       `json:"attempt"`
	Recipient string    `json:"recipient"` // user id when known, else contact field
	Channel   Channel   `json:"channel"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Notification is one dispatch request. Mutated only by the dispatch
// coordinator; never deleted by this engine. RecordVersion is the optimistic
// concurrency token guarding status transitions.
type Notification struct {
	ID            string                 `json:"id"`
	TenantID      string                 `json:"tenantId"`
	EventKey      string                 `json:"eventKey"`
	TemplateID    string                 `json:"templateId,omitempty"`
	Channels      []Channel              `json:"channels"`
	Recipients    []Recipient            `json:"recipients"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	Status        NotificationStatus     `json:"status"`
	Attempts      int                    `json:"attempts"`
	LastAttemptAt *time.Time             `json:"lastAttemptAt,omitempty"`
	DeliveredAt   *time.Time             `json:"deliveredAt,omitempty"`
	LastError     string                 `json:"lastError,omitempty"`
	ScheduledFor  *time.Time             `json:"scheduledFor,omitempty"`
	Results       []SendResultRecord     `json:"results,omitempty"`
	RecordVersion int                    `json:"recordVersion"`
	CreatedAt     time.Time              `json:"createdAt"`
}
