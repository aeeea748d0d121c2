// internal/models/route.go
package models

import "time"

// QuietHours is a half-open [Start, End) wall-clock window in "HH:mm"
// format. A window whose start is after its end wraps past midnight.
type QuietHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ChannelRoute configures one channel within a route. Fallback lists the
// substitutes tried, in order, when the channel is quiet-suppressed.
type ChannelRoute struct {
	Channel    Channel     `json:"channel"`
	Enabled    bool        `json:"enabled"`
	QuietHours *QuietHours `json:"quietHours,omitempty"`
	Fallback   []Channel   `json:"fallback,omitempty"`
}

// Route maps a tenant's event key to its per-channel delivery rules.
// Absence of a route for an event key means all requested channels are
// allowed.
type Route struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenantId"`
	EventKey  string         `json:"eventKey"`
	Channels  []ChannelRoute `json:"channels"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ChannelConfig returns the config for c, or nil when the route does not
// mention it.
func (r *Route) ChannelConfig(c Channel) *ChannelRoute {
	for i := range r.Channels {
		if r.Channels[i].Channel == c {
			return &r.Channels[i]
		}
	}
	return nil
}
