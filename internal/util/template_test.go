package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplatePassThrough(t *testing.T) {
	out, err := RenderTemplate("plain prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain prompt", out)
}

func TestRenderTemplateSubstitution(t *testing.T) {
	out, err := RenderTemplate("research {{.topic}} in {{upper .lang}}", map[string]any{
		"topic": "schedulers",
		"lang":  "go",
	})
	require.NoError(t, err)
	assert.Equal(t, "research schedulers in GO", out)
}

func TestRenderTemplateHelpers(t *testing.T) {
	out, err := RenderTemplate(`{{join ", " .items}}`, map[string]any{
		"items": []any{"a", "b", "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a, b, c", out)

	out, err = RenderTemplate(`{{default "none" .missing}}`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "none", out)
}

func TestRenderTemplateMalformed(t *testing.T) {
	_, err := RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}
