// internal/template/service.go
package template

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"notify-engine/internal/common/errors"
	"notify-engine/internal/common/logger"
	"notify-engine/internal/common/metrics"
	"notify-engine/internal/models"
	"notify-engine/internal/store"
)

// Service owns versioned template definitions and rendering.
type Service struct {
	store  store.TemplateStore
	logger logger.Logger
}

func NewService(st store.TemplateStore, log logger.Logger) *Service {
	return &Service{
		store:  st,
		logger: log.WithFields(map[string]interface{}{"component": "template"}),
	}
}

// CreateInput creates a template plus its first version.
type CreateInput struct {
	Key           string                 `json:"key"`
	Channels      []models.Channel       `json:"channels"`
	Content       string                 `json:"content"`
	Subject       string                 `json:"subject,omitempty"`
	Name          string                 `json:"name,omitempty"`
	Description   string                 `json:"description,omitempty"`
	Category      string                 `json:"category,omitempty"`
	Tags          []string               `json:"tags,omitempty"`
	SamplePayload map[string]interface{} `json:"samplePayload,omitempty"`
}

// UpdateInput is a partial patch. Metadata fields mutate in place; the
// presence of Content, Subject, or Channels appends a new version even when
// the new content is textually identical to the prior version.
type UpdateInput struct {
	Name          *string                 `json:"name,omitempty"`
	Description   *string                 `json:"description,omitempty"`
	Category      *string                 `json:"category,omitempty"`
	Tags          *[]string               `json:"tags,omitempty"`
	SamplePayload *map[string]interface{} `json:"samplePayload,omitempty"`
	Content       *string                 `json:"content,omitempty"`
	Subject       *string                 `json:"subject,omitempty"`
	Channels      *[]models.Channel       `json:"channels,omitempty"`
	ChangeSummary string                  `json:"changeSummary,omitempty"`
}

// VersionInput is an explicit version bump.
type VersionInput struct {
	Content       string           `json:"content"`
	Subject       *string          `json:"subject,omitempty"`
	Channels      []models.Channel `json:"channels,omitempty"`
	ChangeSummary string           `json:"changeSummary,omitempty"`
}

// PreviewInput renders either a stored template's current version or caller
// supplied raw content.
type PreviewInput struct {
	TemplateID string                 `json:"templateId,omitempty"`
	Content    string                 `json:"content,omitempty"`
	Subject    string                 `json:"subject,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// PreviewOutput is a rendered preview.
type PreviewOutput struct {
	Content   string   `json:"content"`
	Subject   string   `json:"subject,omitempty"`
	Variables []string `json:"variables"`
}

func (s *Service) Create(ctx context.Context, tenantID, author string, input CreateInput) (*models.Template, error) {
	key := strings.ToLower(strings.TrimSpace(input.Key))
	if key == "" {
		return nil, errors.NewBadRequestError("Template key is required", "")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.NewBadRequestError("Template content is required", fmt.Sprintf("key: %s", key))
	}
	for _, c := range input.Channels {
		if !models.IsValidChannel(c) {
			return nil, errors.NewBadRequestError("Unknown channel", fmt.Sprintf("channel: %s", c))
		}
	}

	variables, err := ExtractVariables(input.Content)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &models.Template{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		Key:            key,
		Name:           input.Name,
		Description:    input.Description,
		Category:       input.Category,
		Tags:           input.Tags,
		SamplePayload:  input.SamplePayload,
		Channels:       input.Channels,
		CurrentVersion: 1,
		CreatedBy:      author,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	v1 := &models.TemplateVersion{
		TemplateID:    t.ID,
		Version:       1,
		Content:       input.Content,
		Subject:       input.Subject,
		Channels:      input.Channels,
		Variables:     variables,
		ChangeSummary: "Initial version",
		CreatedBy:     author,
		CreatedAt:     now,
	}

	// One guarded write: the template never exists without its version 1,
	// and a duplicate key leaves nothing claimed.
	if err := s.store.CreateTemplate(ctx, t, v1); err != nil {
		return nil, err
	}
	metrics.TemplateVersionsCreated.Inc()

	s.logger.Info("template created", map[string]interface{}{
		"tenantId":   tenantID,
		"templateId": t.ID,
		"key":        key,
		"variables":  variables,
	})
	return t, nil
}

func (s *Service) Update(ctx context.Context, tenantID, id, editor string, patch UpdateInput) (*models.Template, error) {
	t, err := s.store.GetTemplate(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.Tags != nil {
		t.Tags = *patch.Tags
	}
	if patch.SamplePayload != nil {
		t.SamplePayload = *patch.SamplePayload
	}
	t.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateTemplateMeta(ctx, t); err != nil {
		return nil, err
	}

	// Content-bearing fields force a version append; the decision is
	// request-driven, not diff-driven.
	if patch.Content != nil || patch.Subject != nil || patch.Channels != nil {
		current, err := s.store.GetVersion(ctx, tenantID, t.ID, t.CurrentVersion)
		if err != nil {
			return nil, err
		}

		content := current.Content
		if patch.Content != nil {
			content = *patch.Content
		}
		subject := current.Subject
		if patch.Subject != nil {
			subject = *patch.Subject
		}
		channels := current.Channels
		if patch.Channels != nil {
			channels = *patch.Channels
		}

		summary := patch.ChangeSummary
		if summary == "" {
			summary = fmt.Sprintf("Updated by %s", editor)
		}

		v, err := s.appendVersion(ctx, tenantID, t, editor, content, subject, channels, summary)
		if err != nil {
			return nil, err
		}
		t.CurrentVersion = v.Version
		t.Channels = v.Channels
	}

	return t, nil
}

func (s *Service) CreateVersion(ctx context.Context, tenantID, id, editor string, input VersionInput) (*models.TemplateVersion, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.NewBadRequestError("Version content is required", fmt.Sprintf("templateId: %s", id))
	}

	t, err := s.store.GetTemplate(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	current, err := s.store.GetVersion(ctx, tenantID, t.ID, t.CurrentVersion)
	if err != nil {
		return nil, err
	}

	subject := current.Subject
	if input.Subject != nil {
		subject = *input.Subject
	}
	channels := current.Channels
	if len(input.Channels) > 0 {
		channels = input.Channels
	}

	summary := input.ChangeSummary
	if summary == "" {
		summary = fmt.Sprintf("Version %d by %s", t.CurrentVersion+1, editor)
	}

	return s.appendVersion(ctx, tenantID, t, editor, input.Content, subject, channels, summary)
}

// appendVersion extracts variables and appends the next version via the
// store's guarded write. A lost race surfaces as a concurrency conflict for
// the caller to retry.
func (s *Service) appendVersion(ctx context.Context, tenantID string, t *models.Template, editor, content, subject string, channels []models.Channel, summary string) (*models.TemplateVersion, error) {
	variables, err := ExtractVariables(content)
	if err != nil {
		return nil, err
	}

	v := &models.TemplateVersion{
		TemplateID:    t.ID,
		Version:       t.CurrentVersion + 1,
		Content:       content,
		Subject:       subject,
		Channels:      channels,
		Variables:     variables,
		ChangeSummary: summary,
		CreatedBy:     editor,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.AppendVersion(ctx, tenantID, t.CurrentVersion, v); err != nil {
		return nil, err
	}
	metrics.TemplateVersionsCreated.Inc()

	s.logger.Info("template version created", map[string]interface{}{
		"tenantId":   tenantID,
		"templateId": t.ID,
		"version":    v.Version,
	})
	return v, nil
}

func (s *Service) Preview(ctx context.Context, tenantID string, input PreviewInput) (*PreviewOutput, error) {
	content := input.Content
	subject := input.Subject

	var variables []string
	if input.TemplateID != "" {
		t, err := s.store.GetTemplate(ctx, tenantID, input.TemplateID)
		if err != nil {
			return nil, err
		}
		v, err := s.store.GetVersion(ctx, tenantID, t.ID, t.CurrentVersion)
		if err != nil {
			return nil, err
		}
		content = v.Content
		subject = v.Subject
		variables = v.Variables
	} else {
		if strings.TrimSpace(content) == "" {
			return nil, errors.NewBadRequestError("Preview requires a templateId or raw content", "")
		}
		var err error
		variables, err = ExtractVariables(content)
		if err != nil {
			return nil, err
		}
	}

	rendered, err := Render(content, input.Data)
	if err != nil {
		return nil, err
	}

	renderedSubject := subject
	if subject != "" {
		renderedSubject, err = Render(subject, input.Data)
		if err != nil {
			return nil, err
		}
	}

	return &PreviewOutput{
		Content:   rendered,
		Subject:   renderedSubject,
		Variables: variables,
	}, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (*models.Template, error) {
	return s.store.GetTemplate(ctx, tenantID, id)
}

func (s *Service) GetByKey(ctx context.Context, tenantID, key string) (*models.Template, error) {
	return s.store.GetTemplateByKey(ctx, tenantID, strings.ToLower(key))
}

func (s *Service) List(ctx context.Context, tenantID string) ([]*models.Template, error) {
	return s.store.ListTemplates(ctx, tenantID)
}

func (s *Service) GetVersion(ctx context.Context, tenantID, id string, version int) (*models.TemplateVersion, error) {
	return s.store.GetVersion(ctx, tenantID, id, version)
}

func (s *Service) ListVersions(ctx context.Context, tenantID, id string) ([]*models.TemplateVersion, error) {
	return s.store.ListVersions(ctx, tenantID, id)
}
