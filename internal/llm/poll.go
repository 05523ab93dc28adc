package llm

import (
	"context"
	"log"
	"time"
)

// FileState is the provider-side processing state of an uploaded file.
type FileState int

const (
	FileStateUnknown FileState = iota
	FileStateProcessing
	FileStateActive
	FileStateFailed
)

func (s FileState) String() string {
	switch s {
	case FileStateProcessing:
		return "PROCESSING"
	case FileStateActive:
		return "ACTIVE"
	case FileStateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Poll defaults: 300 attempts at 2s caps the wait at roughly ten minutes.
const (
	DefaultPollInterval    = 2 * time.Second
	DefaultPollMaxAttempts = 300
)

// stateFunc fetches the current state of one remote file.
type stateFunc func(ctx context.Context) (FileState, string, error)

// awaitActive polls until the file leaves the processing state.
// Unknown states are treated as ready, matching the provider's "not processing" contract.
func awaitActive(ctx context.Context, fileName string, fetch stateFunc, interval time.Duration, maxAttempts int) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollMaxAttempts
	}

	state, reason, err := fetch(ctx)
	if err != nil {
		return err
	}

	attempts := 0
	for state == FileStateProcessing {
		attempts++
		if attempts > maxAttempts {
			return &ProcessingTimeoutError{FileName: fileName, Attempts: maxAttempts, Interval: interval}
		}
		log.Printf("[llm] waiting for %s to finish processing (attempt %d/%d)", fileName, attempts, maxAttempts)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		state, reason, err = fetch(ctx)
		if err != nil {
			return err
		}
	}

	if state == FileStateFailed {
		return &ProcessingFailedError{FileName: fileName, Reason: reason}
	}
	return nil
}
