// internal/models/channel.go
package models

// Channel identifies a delivery mechanism.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelWebhook Channel = "webhook"
	ChannelInApp   Channel = "in_app"
)

// AllChannels lists every channel this engine can dispatch to.
var AllChannels = []Channel{ChannelEmail, ChannelSMS, ChannelWebhook, ChannelInApp}

// IsValidChannel reports whether c names a known channel.
func IsValidChannel(c Channel) bool {
	return ContainsChannel(AllChannels, c)
}

// ContainsChannel reports whether channels includes c.
func ContainsChannel(channels []Channel, c Channel) bool {
	for _, ch := range channels {
		if ch == c {
			return true
		}
	}
	return false
}
