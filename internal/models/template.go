// internal/models/template.go
package models

import "time"

// Template is the tenant-scoped parent record. Renderable content lives in
// immutable TemplateVersion records; the parent holds only the pointer to
// the last appended version.
type Template struct {
	ID             string                 `json:"id"`
	TenantID       string                 `json:"tenantId"`
	Key            string                 `json:"key"` // unique per tenant, stored lowercase
	Name           string                 `json:"name,omitempty"`
	Description    string                 `json:"description,omitempty"`
	Category       string                 `json:"category,omitempty"`
	Tags           []string               `json:"tags,omitempty"`
	SamplePayload  map[string]interface{} `json:"samplePayload,omitempty"`
	Channels       []Channel              `json:"channels"`
	CurrentVersion int                    `json:"currentVersion"`
	CreatedBy      string                 `json:"createdBy,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// TemplateVersion is an immutable numbered snapshot of renderable content.
// Versions start at 1 and increase by exactly one; they are never edited or
// removed once appended.
type TemplateVersion struct {
	TemplateID    string    `json:"templateId"`
	Version       int       `json:"version"`
	Content       string    `json:"content"`
	Subject       string    `json:"subject,omitempty"`
	Channels      []Channel `json:"channels,omitempty"`
	Variables     []string  `json:"variables,omitempty"`
	ChangeSummary string    `json:"changeSummary,omitempty"`
	CreatedBy     string    `json:"createdBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
