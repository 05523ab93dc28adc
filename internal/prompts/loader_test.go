package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("analysis.json", "rewrite-resume")
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "Return ONLY the resume markdown")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("analysis.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGet_ValidPrompt(t *testing.T) {
	ClearCache()

	assert.NotPanics(t, func() {
		prompt := MustGet("analysis.json", "analyze-request")
		assert.Contains(t, prompt, "{{.JobTitle}}")
	})
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{"replaces placeholders", "Hello {{.Name}}, role {{.Role}}", map[string]string{"Name": "Jane", "Role": "SRE"}, "Hello Jane, role SRE"},
		{"no placeholders", "plain text", map[string]string{"Name": "Jane"}, "plain text"},
		{"empty data", "Hello {{.Name}}", nil, "Hello {{.Name}}"},
		{"unknown placeholder kept", "{{.Name}} {{.Other}}", map[string]string{"Name": "Jane"}, "Jane {{.Other}}"},
		{"values are not re-expanded", "{{.A}} {{.B}}", map[string]string{"A": "{{.B}}", "B": "b"}, "{{.B}} b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.template, tt.data))
		})
	}
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("analysis.json")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"analyze-request", "analyze-guidance", "rewrite-resume", "rewrite-no-reference"}, keys)
}

func TestCaching(t *testing.T) {
	ClearCache()

	prompt1, err := Get("analysis.json", "analyze-guidance")
	require.NoError(t, err)

	prompt2, err := Get("analysis.json", "analyze-guidance")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}

func TestList_Sorted(t *testing.T) {
	ClearCache()

	keys, err := List("analysis.json")
	require.NoError(t, err)
	assert.IsIncreasing(t, keys)
}
