package analysis

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// Store persists ResumeAnalysis records. Every read, update and delete is
// scoped by owner; a record owned by someone else yields *NotFoundError.
type Store interface {
	// Create inserts the record and returns its id. ID, CreatedAt and UpdatedAt are assigned by the store.
	Create(ctx context.Context, rec *types.ResumeAnalysis) (uuid.UUID, error)
	FindByIDForOwner(ctx context.Context, id, ownerID uuid.UUID) (*types.ResumeAnalysis, error)
	// FindByLocatorForOwner resolves the record that owns a stored blob.
	FindByLocatorForOwner(ctx context.Context, locator string, ownerID uuid.UUID) (*types.ResumeAnalysis, error)
	// ListByOwner returns the owner's records, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]types.ResumeAnalysis, error)
	// UpdateRewriteMarkdown sets the rewritten resume atomically and returns the updated record.
	UpdateRewriteMarkdown(ctx context.Context, id, ownerID uuid.UUID, markdown string) (*types.ResumeAnalysis, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}
