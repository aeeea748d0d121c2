// internal/models/preference.go
package models

import "time"

// ChannelPreference is one user's stance on one channel.
type ChannelPreference struct {
	Enabled    bool        `json:"enabled"`
	QuietHours *QuietHours `json:"quietHours,omitempty"`
}

// Preference holds a user's per-channel opt-outs and personal quiet hours.
// Absence of a preference record, or of an entry for a channel, means the
// channel is enabled with no quiet hours.
type Preference struct {
	TenantID  string                        `json:"tenantId"`
	UserID    string                        `json:"userId"`
	Channels  map[Channel]ChannelPreference `json:"channels"`
	UpdatedAt time.Time                     `json:"updatedAt"`
}
