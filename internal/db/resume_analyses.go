package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/resume-analyzer/internal/analysis"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// AnalysisStore implements analysis.Store on the resume_analyses table.
type AnalysisStore struct {
	db *DB
}

// NewAnalysisStore wraps db as an analysis.Store.
func NewAnalysisStore(db *DB) *AnalysisStore {
	return &AnalysisStore{db: db}
}

const analysisColumns = `id, owner_id, storage_locator, original_file_name, mime_type, byte_size,
	page_count, job_title, job_description, analysis, created_at, updated_at`

func scanAnalysis(row pgx.Row) (*types.ResumeAnalysis, error) {
	var (
		rec     types.ResumeAnalysis
		payload []byte
	)
	err := row.Scan(
		&rec.ID, &rec.OwnerID,
		&rec.SourceFile.StorageLocator, &rec.SourceFile.OriginalFileName, &rec.SourceFile.MIMEType,
		&rec.SourceFile.ByteSize, &rec.SourceFile.PageCount,
		&rec.JobTitle, &rec.JobDescription, &payload,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &rec.Analysis); err != nil {
		return nil, fmt.Errorf("failed to decode analysis payload: %w", err)
	}
	rec.Analysis.Normalize()
	return &rec, nil
}

func (s *AnalysisStore) Create(ctx context.Context, rec *types.ResumeAnalysis) (uuid.UUID, error) {
	payload, err := json.Marshal(rec.Analysis)
	if err != nil {
		return uuid.Nil, &analysis.PersistenceError{Op: "encode analysis", Cause: err}
	}

	err = s.db.pool.QueryRow(ctx,
		`INSERT INTO resume_analyses (owner_id, storage_locator, original_file_name, mime_type, byte_size,
			page_count, job_title, job_description, analysis)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		rec.OwnerID, rec.SourceFile.StorageLocator, rec.SourceFile.OriginalFileName, rec.SourceFile.MIMEType,
		rec.SourceFile.ByteSize, rec.SourceFile.PageCount, rec.JobTitle, rec.JobDescription, payload,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return uuid.Nil, &analysis.PersistenceError{Op: "create resume analysis", Cause: err}
	}
	return rec.ID, nil
}

func (s *AnalysisStore) FindByIDForOwner(ctx context.Context, id, ownerID uuid.UUID) (*types.ResumeAnalysis, error) {
	rec, err := scanAnalysis(s.db.pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM resume_analyses WHERE id = $1 AND owner_id = $2`,
		id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &analysis.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, &analysis.PersistenceError{Op: "get resume analysis", Cause: err}
	}
	return rec, nil
}

func (s *AnalysisStore) FindByLocatorForOwner(ctx context.Context, locator string, ownerID uuid.UUID) (*types.ResumeAnalysis, error) {
	rec, err := scanAnalysis(s.db.pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM resume_analyses
		 WHERE storage_locator = $1 AND owner_id = $2
		 ORDER BY created_at DESC LIMIT 1`,
		locator, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &analysis.NotFoundError{}
	}
	if err != nil {
		return nil, &analysis.PersistenceError{Op: "get resume analysis by locator", Cause: err}
	}
	return rec, nil
}

func (s *AnalysisStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]types.ResumeAnalysis, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT `+analysisColumns+` FROM resume_analyses
		 WHERE owner_id = $1
		 ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, &analysis.PersistenceError{Op: "list resume analyses", Cause: err}
	}
	defer rows.Close()

	out := []types.ResumeAnalysis{}
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, &analysis.PersistenceError{Op: "scan resume analysis", Cause: err}
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &analysis.PersistenceError{Op: "list resume analyses", Cause: err}
	}
	return out, nil
}

// UpdateRewriteMarkdown patches the JSONB field in a single statement so concurrent
// writers never clobber unrelated analysis fields.
func (s *AnalysisStore) UpdateRewriteMarkdown(ctx context.Context, id, ownerID uuid.UUID, markdown string) (*types.ResumeAnalysis, error) {
	rec, err := scanAnalysis(s.db.pool.QueryRow(ctx,
		`UPDATE resume_analyses
		 SET analysis = jsonb_set(analysis, '{rewrittenResumeMarkdown}', to_jsonb($3::text), true),
		     updated_at = clock_timestamp()
		 WHERE id = $1 AND owner_id = $2
		 RETURNING `+analysisColumns,
		id, ownerID, markdown))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &analysis.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, &analysis.PersistenceError{Op: "update rewrite markdown", Cause: err}
	}
	return rec, nil
}

func (s *AnalysisStore) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := s.db.pool.Exec(ctx,
		`DELETE FROM resume_analyses WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return &analysis.PersistenceError{Op: "delete resume analysis", Cause: err}
	}
	if tag.RowsAffected() == 0 {
		return &analysis.NotFoundError{ID: id}
	}
	return nil
}

var _ analysis.Store = (*AnalysisStore)(nil)
