package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(owner uuid.UUID, locator string) *types.ResumeAnalysis {
	return &types.ResumeAnalysis{
		OwnerID:        owner,
		JobTitle:       "Backend Engineer",
		JobDescription: "Go, distributed systems",
		SourceFile:     types.SourceFile{StorageLocator: locator, MIMEType: "application/pdf"},
		Analysis:       types.AnalysisResult{ATSScore: 70, Strengths: []string{"Go"}},
	}
}

func TestMemoryStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := uuid.New()

	rec := newRecord(owner, "resume-a.pdf")
	id, err := store.Create(ctx, rec)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, id, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := store.FindByIDForOwner(ctx, id, owner)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", got.JobTitle)
	assert.Equal(t, []string{"Go"}, got.Analysis.Strengths)

	// mutation of the returned copy must not leak into the store
	got.Analysis.Strengths[0] = "changed"
	again, err := store.FindByIDForOwner(ctx, id, owner)
	require.NoError(t, err)
	assert.Equal(t, "Go", again.Analysis.Strengths[0])
}

func TestMemoryStore_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner, other := uuid.New(), uuid.New()

	id, err := store.Create(ctx, newRecord(owner, "resume-a.pdf"))
	require.NoError(t, err)

	var notFound *NotFoundError

	_, err = store.FindByIDForOwner(ctx, id, other)
	require.True(t, errors.As(err, &notFound))

	_, err = store.FindByLocatorForOwner(ctx, "resume-a.pdf", other)
	require.True(t, errors.As(err, &notFound))

	_, err = store.UpdateRewriteMarkdown(ctx, id, other, "# hijack")
	require.True(t, errors.As(err, &notFound))

	err = store.Delete(ctx, id, other)
	require.True(t, errors.As(err, &notFound))

	list, err := store.ListByOwner(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := store.FindByIDForOwner(ctx, id, owner)
	require.NoError(t, err)
	assert.Nil(t, got.Analysis.RewrittenResumeMarkdown)
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	owner := uuid.New()

	first, err := store.Create(ctx, newRecord(owner, "resume-1.pdf"))
	require.NoError(t, err)
	second, err := store.Create(ctx, newRecord(owner, "resume-2.pdf"))
	require.NoError(t, err)
	_, err = store.Create(ctx, newRecord(uuid.New(), "resume-3.pdf"))
	require.NoError(t, err)

	list, err := store.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)
}

func TestMemoryStore_UpdateRewriteMarkdown(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := uuid.New()

	id, err := store.Create(ctx, newRecord(owner, "resume-a.pdf"))
	require.NoError(t, err)

	updated, err := store.UpdateRewriteMarkdown(ctx, id, owner, "# Jane Doe")
	require.NoError(t, err)
	require.NotNil(t, updated.Analysis.RewrittenResumeMarkdown)
	assert.Equal(t, "# Jane Doe", *updated.Analysis.RewrittenResumeMarkdown)

	_, err = store.UpdateRewriteMarkdown(ctx, uuid.New(), owner, "# nobody")
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestMemoryStore_DeleteTwice(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := uuid.New()

	id, err := store.Create(ctx, newRecord(owner, "resume-a.pdf"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id, owner))

	var notFound *NotFoundError
	err = store.Delete(ctx, id, owner)
	assert.True(t, errors.As(err, &notFound))

	_, err = store.FindByIDForOwner(ctx, id, owner)
	assert.True(t, errors.As(err, &notFound))
}

func TestMemoryStore_FindByLocator(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := uuid.New()

	id, err := store.Create(ctx, newRecord(owner, "resume-abc.pdf"))
	require.NoError(t, err)

	got, err := store.FindByLocatorForOwner(ctx, "resume-abc.pdf", owner)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
}
