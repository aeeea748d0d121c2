// internal/template/service_test.go
package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-engine/internal/common/errors"
	"notify-engine/internal/common/logger"
	"notify-engine/internal/models"
	"notify-engine/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return NewService(st, logger.NewTestLogger(t)), st
}

func TestServiceCreate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, "acme", "alice", CreateInput{
		Key:      "Order-Shipped",
		Name:     "Order shipped",
		Channels: []models.Channel{models.ChannelEmail, models.ChannelInApp},
		Content:  "Hi {{name}}, order {{order.id}} shipped",
		Subject:  "Order {{order.id}}",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, tmpl.ID)
	assert.Equal(t, "order-shipped", tmpl.Key, "key is normalized to lowercase")
	assert.Equal(t, 1, tmpl.CurrentVersion)

	v, err := svc.GetVersion(ctx, "acme", tmpl.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "order.id"}, v.Variables)
	assert.Equal(t, "Initial version", v.ChangeSummary)

	t.Run("lookup by key", func(t *testing.T) {
		got, err := svc.GetByKey(ctx, "acme", "order-shipped")
		require.NoError(t, err)
		assert.Equal(t, tmpl.ID, got.ID)

		_, err = svc.GetByKey(ctx, "acme", "no-such-key")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateInput
	}{
		{
			name:  "missing key",
			input: CreateInput{Content: "hello"},
		},
		{
			name:  "missing content",
			input: CreateInput{Key: "welcome"},
		},
		{
			name: "unknown channel",
			input: CreateInput{
				Key:      "welcome",
				Content:  "hello",
				Channels: []models.Channel{"pager"},
			},
		},
		{
			name: "unbalanced delimiters",
			input: CreateInput{
				Key:     "welcome",
				Content: "hello {{name",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "acme", "alice", tt.input)
			require.Error(t, err)
			assert.True(t, errors.IsBadRequest(err))
		})
	}
}

func TestServiceCreateDuplicateKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	input := CreateInput{Key: "welcome", Content: "hi {{name}}"}
	_, err := svc.Create(ctx, "acme", "alice", input)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "acme", "bob", input)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	// Same key under another tenant is fine.
	_, err = svc.Create(ctx, "globex", "carol", input)
	assert.NoError(t, err)
}

func TestServiceUpdateMetadataOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, "acme", "alice", CreateInput{
		Key:     "welcome",
		Content: "hi {{name}}",
	})
	require.NoError(t, err)

	name := "Welcome mail"
	updated, err := svc.Update(ctx, "acme", tmpl.ID, "bob", UpdateInput{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "Welcome mail", updated.Name)
	assert.Equal(t, 1, updated.CurrentVersion, "metadata patch must not bump the version")
}

func TestServiceUpdateContentAppendsVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, "acme", "alice", CreateInput{
		Key:     "welcome",
		Subject: "Welcome",
		Content: "hi {{name}}",
	})
	require.NoError(t, err)

	content := "hello {{name}}, welcome to {{tenant}}"
	updated, err := svc.Update(ctx, "acme", tmpl.ID, "bob", UpdateInput{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentVersion)

	v2, err := svc.GetVersion(ctx, "acme", tmpl.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, content, v2.Content)
	assert.Equal(t, "Welcome", v2.Subject, "untouched fields carry over from the prior version")
	assert.Equal(t, []string{"name", "tenant"}, v2.Variables)

	// The prior version stays readable.
	v1, err := svc.GetVersion(ctx, "acme", tmpl.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "hi {{name}}", v1.Content)
}

func TestServiceUpdateIdenticalContentStillAppends(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, "acme", "alice", CreateInput{
		Key:     "welcome",
		Content: "hi {{name}}",
	})
	require.NoError(t, err)

	same := "hi {{name}}"
	updated, err := svc.Update(ctx, "acme", tmpl.ID, "bob", UpdateInput{Content: &same})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentVersion, "presence of content in the patch forces an append")
}

func TestServiceCreateVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, "acme", "alice", CreateInput{
		Key:     "welcome",
		Content: "hi {{name}}",
	})
	require.NoError(t, err)

	v, err := svc.CreateVersion(ctx, "acme", tmpl.ID, "bob", VersionInput{
		Content:       "hello {{name}}",
		ChangeSummary: "Friendlier greeting",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Version)
	assert.Equal(t, "Friendlier greeting", v.ChangeSummary)

	_, err = svc.CreateVersion(ctx, "acme", tmpl.ID, "bob", VersionInput{Content: "  "})
	require.Error(t, err)
	assert.True(t, errors.IsBadRequest(err))
}

func TestServicePreview(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, "acme", "alice", CreateInput{
		Key:     "welcome",
		Subject: "Hello {{name}}",
		Content: "hi {{name}}, you have {{count}} alerts",
	})
	require.NoError(t, err)

	t.Run("stored template", func(t *testing.T) {
		out, err := svc.Preview(ctx, "acme", PreviewInput{
			TemplateID: tmpl.ID,
			Data:       map[string]interface{}{"name": "Ada", "count": 2},
		})
		require.NoError(t, err)
		assert.Equal(t, "hi Ada, you have 2 alerts", out.Content)
		assert.Equal(t, "Hello Ada", out.Subject)
		assert.Equal(t, []string{"name", "count"}, out.Variables)
	})

	t.Run("raw content", func(t *testing.T) {
		out, err := svc.Preview(ctx, "acme", PreviewInput{
			Content: "ping {{who}}",
			Data:    map[string]interface{}{"who": "ops"},
		})
		require.NoError(t, err)
		assert.Equal(t, "ping ops", out.Content)
	})

	t.Run("neither template nor content", func(t *testing.T) {
		_, err := svc.Preview(ctx, "acme", PreviewInput{})
		require.Error(t, err)
		assert.True(t, errors.IsBadRequest(err))
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := svc.Preview(ctx, "acme", PreviewInput{TemplateID: "nope"})
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestServiceListVersions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, "acme", "alice", CreateInput{
		Key:     "welcome",
		Content: "v1",
	})
	require.NoError(t, err)

	for _, content := range []string{"v2", "v3"} {
		_, err := svc.CreateVersion(ctx, "acme", tmpl.ID, "alice", VersionInput{Content: content})
		require.NoError(t, err)
	}

	versions, err := svc.ListVersions(ctx, "acme", tmpl.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, 3, versions[2].Version)
}

func TestServiceLintSamplePayload(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, "acme", "alice", CreateInput{
		Key:     "welcome",
		Content: "hi {{name}}, order {{order.id}}",
		SamplePayload: map[string]interface{}{
			"name": "Ada",
		},
	})
	require.NoError(t, err)

	report, err := svc.LintSamplePayload(ctx, "acme", tmpl.ID, nil)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, []string{"order.id"}, report.MissingVariables)

	t.Run("schema violation", func(t *testing.T) {
		schema := map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"order"},
		}
		report, err := svc.LintSamplePayload(ctx, "acme", tmpl.ID, schema)
		require.NoError(t, err)
		assert.False(t, report.Valid)
		assert.NotEmpty(t, report.SchemaViolations)
	})
}
