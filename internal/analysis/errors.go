// Package analysis holds the resume analysis record contract: error taxonomy, result parsing, and stores.
package analysis

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError indicates a rejected submission or request body.
// Message is safe to show to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// NotFoundError indicates the record does not exist or is not owned by the requester.
// Both cases are reported identically.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resume analysis not found: %s", e.ID)
}

// ForbiddenError indicates the requester is not entitled to a premium feature.
type ForbiddenError struct {
	Feature string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("not entitled to feature %q", e.Feature)
}

// PersistenceError wraps a record store failure.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("persistence error: %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("persistence error: %s", e.Op)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
