package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("You are {{.name}}. Task: {{.job}}", map[string]any{
		"name": "researcher-1",
		"job":  "find sources",
	})
	require.NoError(t, err)
	assert.Equal(t, "You are researcher-1. Task: find sources", out)
}

func TestRenderTemplatePlainTextFastPath(t *testing.T) {
	out, err := RenderTemplate("no markers here", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers here", out)
}

func TestRenderTemplateFuncs(t *testing.T) {
	out, err := RenderTemplate(`{{upper .mode}}: {{join ", " .items}}`, map[string]any{
		"mode":  "fast",
		"items": []any{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "FAST: a, b", out)
}

func TestRenderTemplateParseError(t *testing.T) {
	_, err := RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}
