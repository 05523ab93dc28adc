package analysis

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// MemoryStore is an in-process Store used by the CLI and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]types.ResumeAnalysis
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]types.ResumeAnalysis),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, rec *types.ResumeAnalysis) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneRecord(*rec)
	stored.ID = uuid.New()
	// Strictly increasing timestamps keep newest-first ordering stable.
	now := s.now()
	for _, r := range s.records {
		if !now.After(r.CreatedAt) {
			now = r.CreatedAt.Add(time.Microsecond)
		}
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.records[stored.ID] = stored

	rec.ID = stored.ID
	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = stored.UpdatedAt
	return stored.ID, nil
}

func (s *MemoryStore) FindByIDForOwner(_ context.Context, id, ownerID uuid.UUID) (*types.ResumeAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, &NotFoundError{ID: id}
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (s *MemoryStore) FindByLocatorForOwner(_ context.Context, locator string, ownerID uuid.UUID) (*types.ResumeAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.OwnerID == ownerID && rec.SourceFile.StorageLocator == locator {
			out := cloneRecord(rec)
			return &out, nil
		}
	}
	return nil, &NotFoundError{}
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]types.ResumeAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []types.ResumeAnalysis{}
	for _, rec := range s.records {
		if rec.OwnerID == ownerID {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateRewriteMarkdown(_ context.Context, id, ownerID uuid.UUID, markdown string) (*types.ResumeAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, &NotFoundError{ID: id}
	}
	md := markdown
	rec.Analysis.RewrittenResumeMarkdown = &md
	rec.UpdatedAt = s.now()
	s.records[id] = rec

	out := cloneRecord(rec)
	return &out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id, ownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.OwnerID != ownerID {
		return &NotFoundError{ID: id}
	}
	delete(s.records, id)
	return nil
}

// cloneRecord copies slices and pointers so callers cannot mutate stored state.
func cloneRecord(rec types.ResumeAnalysis) types.ResumeAnalysis {
	a := &rec.Analysis
	a.Strengths = append([]string(nil), a.Strengths...)
	a.ImprovementAreas = append([]string(nil), a.ImprovementAreas...)
	a.Recommendations = append([]string(nil), a.Recommendations...)
	a.KeywordMatch.Matched = append([]string(nil), a.KeywordMatch.Matched...)
	a.KeywordMatch.Missing = append([]string(nil), a.KeywordMatch.Missing...)
	if a.RewrittenResumeMarkdown != nil {
		md := *a.RewrittenResumeMarkdown
		a.RewrittenResumeMarkdown = &md
	}
	a.Normalize()
	return rec
}

var _ Store = (*MemoryStore)(nil)
