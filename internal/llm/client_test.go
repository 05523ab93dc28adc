package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "other"}, "key")
	require.Error(t, err)
}

func TestToGenaiParts(t *testing.T) {
	file := &RemoteFile{Name: "files/abc", URI: "https://files.example/abc", MIMEType: "application/pdf"}
	parts := toGenaiParts([]PromptPart{TextPart("analyze"), FilePart(file)})

	require.Len(t, parts, 2)
	assert.Equal(t, genai.Text("analyze"), parts[0])
	assert.Equal(t, genai.FileData{MIMEType: "application/pdf", URI: "https://files.example/abc"}, parts[1])
}

func TestExtractTextFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"atsScore":`), genai.Text(` 80}`)}},
		}},
	}
	text, err := extractTextFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"atsScore": 80}`, text)

	_, err = extractTextFromResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	_, err = extractTextFromResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}}}},
	})
	assert.Error(t, err)
}

func TestConvertFileState(t *testing.T) {
	state, _, err := convertFileState(&genai.File{State: genai.FileStateActive})
	require.NoError(t, err)
	assert.Equal(t, FileStateActive, state)

	state, reason, _ := convertFileState(&genai.File{State: genai.FileStateFailed})
	assert.Equal(t, FileStateFailed, state)
	assert.NotEmpty(t, reason)

	state, _, _ = convertFileState(&genai.File{State: genai.FileStateProcessing})
	assert.Equal(t, FileStateProcessing, state)
}

func TestErrorTypes_Unwrap(t *testing.T) {
	cause := errors.New("quota exceeded")

	assert.ErrorIs(t, &IngestError{DisplayName: "cv.pdf", Cause: cause}, cause)
	assert.ErrorIs(t, &GenerationError{Message: "failed", Cause: cause}, cause)
	assert.Contains(t, (&ProcessingTimeoutError{FileName: "files/x", Attempts: 300}).Error(), "300 attempts")
}

func TestBuildFormatInstruction(t *testing.T) {
	out := BuildFormatInstruction(ExtractionSchema{
		Description: "Analyze the resume.",
		Fields: []SchemaField{
			{Name: "atsScore", Type: "number (0-100)", Required: true},
			{Name: "summary", Description: "short overview"},
		},
	})

	assert.Contains(t, out, "Analyze the resume.")
	assert.Contains(t, out, `"atsScore": number (0-100) (required),`)
	assert.Contains(t, out, `"summary": "string" // short overview`)
	assert.Contains(t, out, "Return ONLY valid JSON")
}
