// internal/template/render_test.go
package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-engine/internal/common/errors"
)

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "simple variables",
			content:  "Hello {{name}}, your order {{orderId}} shipped",
			expected: []string{"name", "orderId"},
		},
		{
			name:     "duplicates collapse to first occurrence",
			content:  "{{name}} {{name}} {{other}} {{name}}",
			expected: []string{"name", "other"},
		},
		{
			name:     "nested paths",
			content:  "{{user.profile.email}} and {{items[0].sku}}",
			expected: []string{"user.profile.email", "items[0].sku"},
		},
		{
			name:     "whitespace inside delimiters is trimmed",
			content:  "{{ name }} {{  city  }}",
			expected: []string{"name", "city"},
		},
		{
			name:     "no variables",
			content:  "plain text only",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVariables(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractVariablesUnbalanced(t *testing.T) {
	_, err := ExtractVariables("Hello {{name")
	require.Error(t, err)
	assert.True(t, errors.IsBadRequest(err))
}

func TestRender(t *testing.T) {
	data := map[string]interface{}{
		"name": "Ada",
		"user": map[string]interface{}{
			"profile": map[string]interface{}{
				"email": "ada@example.com",
			},
		},
		"items": []interface{}{
			map[string]interface{}{"sku": "A-1"},
			map[string]interface{}{"sku": "B-2"},
		},
		"meta": map[string]interface{}{
			"first name": "Ada",
		},
		"count": float64(3),
		"ratio": 0.5,
		"ok":    true,
	}

	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "simple substitution",
			content:  "Hello {{name}}!",
			expected: "Hello Ada!",
		},
		{
			name:     "nested dotted path",
			content:  "Contact: {{user.profile.email}}",
			expected: "Contact: ada@example.com",
		},
		{
			name:     "array index",
			content:  "First item {{items[0].sku}}, second {{items[1].sku}}",
			expected: "First item A-1, second B-2",
		},
		{
			name:     "quoted bracket key",
			content:  `Hi {{meta["first name"]}}`,
			expected: "Hi Ada",
		},
		{
			name:     "unresolved renders empty",
			content:  "Hello {{missing}}!",
			expected: "Hello !",
		},
		{
			name:     "unresolved nested renders empty",
			content:  "X{{user.profile.phone}}Y",
			expected: "XY",
		},
		{
			name:     "integral float renders without decimal",
			content:  "{{count}} items",
			expected: "3 items",
		},
		{
			name:     "fractional float keeps decimals",
			content:  "ratio {{ratio}}",
			expected: "ratio 0.5",
		},
		{
			name:     "boolean",
			content:  "ok={{ok}}",
			expected: "ok=true",
		},
		{
			name:     "text without variables passes through",
			content:  "no substitution here",
			expected: "no substitution here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.content, data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRenderNilData(t *testing.T) {
	got, err := Render("Hello {{name}}", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello ", got)
}

func TestRenderUnbalanced(t *testing.T) {
	_, err := Render("Hello {{name", map[string]interface{}{"name": "Ada"})
	require.Error(t, err)
	assert.True(t, errors.IsBadRequest(err))
}
