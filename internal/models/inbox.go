// internal/models/inbox.go
package models

import "time"

// Severity classifies an inbox entry for the viewer.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// IsValidSeverity reports whether s is a known severity.
func IsValidSeverity(s Severity) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// InboxEntry is a materialized in-app delivery. Once created it is owned by
// the recipient's inbox view and is never retracted, even if the parent
// notification later fails or is cancelled.
type InboxEntry struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenantId"`
	UserID         string    `json:"userId"`
	NotificationID string    `json:"notificationId,omitempty"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Severity       Severity  `json:"severity"`
	Read           bool      `json:"read"`
	Archived       bool      `json:"archived"`
	DeliveredAt    time.Time `json:"deliveredAt"`
}
