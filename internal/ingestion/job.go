package ingestion

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resume-analyzer/internal/fetch"
)

// MaxJobDescriptionBytes bounds a job description read from a file or URL.
const MaxJobDescriptionBytes = 64 << 10

// JobSourceOptions controls how a job posting URL is read.
type JobSourceOptions struct {
	Fetch *fetch.Options
	// UseBrowser retries thin pages in headless Chrome at ChromePath.
	UseBrowser bool
	ChromePath string
}

// JobDescriptionFromFile reads and cleans a plain-text or markdown job description.
func JobDescriptionFromFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %w", err)
		}
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if !utf8.Valid(content) {
		return "", fmt.Errorf("job description %s is not UTF-8 text", path)
	}
	return finishJobDescription(string(content))
}

// JobDescriptionFromURL fetches a job posting and returns its cleaned text.
func JobDescriptionFromURL(ctx context.Context, rawURL string, opts JobSourceOptions) (string, error) {
	text, err := fetch.Posting(ctx, rawURL, opts.Fetch, opts.UseBrowser, opts.ChromePath)
	if err != nil {
		return "", err
	}
	return finishJobDescription(text)
}

func finishJobDescription(raw string) (string, error) {
	text := CleanText(raw)
	if text == "" {
		return "", fmt.Errorf("job description is empty")
	}
	if len(text) > MaxJobDescriptionBytes {
		text = truncateUTF8(text, MaxJobDescriptionBytes)
	}
	return text, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return strings.TrimSpace(s[:n])
}
