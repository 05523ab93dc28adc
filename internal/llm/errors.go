package llm

import (
	"fmt"
	"time"
)

// IngestError indicates the document could not be uploaded to the model provider.
type IngestError struct {
	DisplayName string
	Cause       error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("failed to ingest %q: %v", e.DisplayName, e.Cause)
}

func (e *IngestError) Unwrap() error {
	return e.Cause
}

// ProcessingFailedError indicates the provider reported a terminal failure for an uploaded file.
type ProcessingFailedError struct {
	FileName string
	Reason   string
}

func (e *ProcessingFailedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("file processing failed for %s: %s", e.FileName, e.Reason)
	}
	return fmt.Sprintf("file processing failed for %s", e.FileName)
}

// ProcessingTimeoutError indicates the file was still processing after the attempt cap.
type ProcessingTimeoutError struct {
	FileName string
	Attempts int
	Interval time.Duration
}

func (e *ProcessingTimeoutError) Error() string {
	return fmt.Sprintf("file %s still processing after %d attempts (%s interval)", e.FileName, e.Attempts, e.Interval)
}

// GenerationError indicates a failed or empty generation call.
type GenerationError struct {
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("generation error: %s", e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
