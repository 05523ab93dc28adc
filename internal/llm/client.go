package llm

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// RemoteFile is a handle to a document uploaded to the model provider.
type RemoteFile struct {
	Name     string
	URI      string
	MIMEType string
}

// PromptPart is one piece of mixed content: either Text or a file reference.
type PromptPart struct {
	Text     string
	FileURI  string
	MIMEType string
}

// TextPart builds a text prompt part.
func TextPart(text string) PromptPart {
	return PromptPart{Text: text}
}

// FilePart builds a prompt part referencing an uploaded file.
func FilePart(f *RemoteFile) PromptPart {
	return PromptPart{FileURI: f.URI, MIMEType: f.MIMEType}
}

// FileClient is the two-phase document analysis contract: ingest, await, generate, release.
type FileClient interface {
	// Ingest uploads the document and returns its remote handle.
	Ingest(ctx context.Context, data []byte, displayName, mimeType string) (*RemoteFile, error)
	// AwaitProcessed blocks until the remote file is usable or a terminal state is reached.
	AwaitProcessed(ctx context.Context, file *RemoteFile, pollInterval time.Duration, maxAttempts int) error
	// Generate invokes the model for the tier with mixed text and file content.
	Generate(ctx context.Context, tier ModelTier, parts ...PromptPart) (string, error)
	// Release deletes the remote file. Callers treat failures as non-fatal.
	Release(ctx context.Context, file *RemoteFile) error
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (FileClient, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported provider %q", config.Provider)
	}
}

// GeminiClient implements FileClient on the Gemini Files API.
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultConfig()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// Ingest uploads data through the Files API.
func (c *GeminiClient) Ingest(ctx context.Context, data []byte, displayName, mimeType string) (*RemoteFile, error) {
	f, err := c.client.UploadFile(ctx, "", bytes.NewReader(data), &genai.UploadFileOptions{
		DisplayName: displayName,
		MIMEType:    mimeType,
	})
	if err != nil {
		return nil, &IngestError{DisplayName: displayName, Cause: err}
	}
	if f == nil || f.Name == "" || f.URI == "" {
		return nil, &IngestError{DisplayName: displayName, Cause: fmt.Errorf("uploaded file is missing name or uri")}
	}

	remote := &RemoteFile{Name: f.Name, URI: f.URI, MIMEType: f.MIMEType}
	if remote.MIMEType == "" {
		remote.MIMEType = mimeType
	}
	return remote, nil
}

// AwaitProcessed polls GetFile until the file is ACTIVE.
func (c *GeminiClient) AwaitProcessed(ctx context.Context, file *RemoteFile, pollInterval time.Duration, maxAttempts int) error {
	fetch := func(ctx context.Context) (FileState, string, error) {
		f, err := c.client.GetFile(ctx, file.Name)
		if err != nil {
			if ctx.Err() != nil {
				return FileStateUnknown, "", ctx.Err()
			}
			return FileStateUnknown, "", &ProcessingFailedError{FileName: file.Name, Reason: "status check failed: " + err.Error()}
		}
		return convertFileState(f)
	}
	return awaitActive(ctx, file.Name, fetch, pollInterval, maxAttempts)
}

func convertFileState(f *genai.File) (FileState, string, error) {
	switch f.State {
	case genai.FileStateProcessing:
		return FileStateProcessing, "", nil
	case genai.FileStateActive:
		return FileStateActive, "", nil
	case genai.FileStateFailed:
		return FileStateFailed, "provider reported FAILED", nil
	default:
		return FileStateUnknown, "", nil
	}
}

// Generate runs the tier's model over the given parts and returns the concatenated text.
func (c *GeminiClient) Generate(ctx context.Context, tier ModelTier, parts ...PromptPart) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", &GenerationError{Message: fmt.Sprintf("no model configured for tier %s", tier)}
	}
	if len(parts) == 0 {
		return "", &GenerationError{Message: "empty prompt"}
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(0.1) // Low temperature for consistent output

	resp, err := model.GenerateContent(ctx, toGenaiParts(parts)...)
	if err != nil {
		return "", &GenerationError{Message: "failed to generate content", Cause: err}
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", &GenerationError{Message: "unusable response", Cause: err}
	}
	return text, nil
}

// Release deletes the remote file.
func (c *GeminiClient) Release(ctx context.Context, file *RemoteFile) error {
	if file == nil || file.Name == "" {
		return nil
	}
	if err := c.client.DeleteFile(ctx, file.Name); err != nil {
		return fmt.Errorf("failed to delete remote file %s: %w", file.Name, err)
	}
	return nil
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func toGenaiParts(parts []PromptPart) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.FileURI != "" {
			out = append(out, genai.FileData{MIMEType: p.MIMEType, URI: p.FileURI})
			continue
		}
		out = append(out, genai.Text(p.Text))
	}
	return out
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	text := strings.Join(parts, "")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text parts in response")
	}
	return text, nil
}

var _ FileClient = (*GeminiClient)(nil)
