// Package docstore implements the resume analysis store on Cloud Firestore.
//
// Listing requires a composite index on (owner_id ASC, created_at DESC).
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/analysis"
	"github.com/jonathan/resume-analyzer/internal/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection holds one document per resume analysis, keyed by id.
const DefaultCollection = "resume_analyses"

// errNotOwned aborts a transaction when the document belongs to someone else.
var errNotOwned = errors.New("document not owned by requester")

type analysisDoc struct {
	OwnerID        string               `firestore:"owner_id"`
	SourceFile     types.SourceFile     `firestore:"source_file"`
	JobTitle       string               `firestore:"job_title"`
	JobDescription string               `firestore:"job_description"`
	Analysis       types.AnalysisResult `firestore:"analysis"`
	CreatedAt      time.Time            `firestore:"created_at"`
	UpdatedAt      time.Time            `firestore:"updated_at"`
}

// Store implements analysis.Store on a Firestore collection.
type Store struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

// NewFirestoreClient creates a Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

// New wraps client. An empty collection uses DefaultCollection.
func New(client *firestore.Client, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{client: client, collection: collection, now: time.Now}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) doc(id uuid.UUID) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id.String())
}

func (s *Store) Create(ctx context.Context, rec *types.ResumeAnalysis) (uuid.UUID, error) {
	now := s.now().UTC()
	rec.ID = uuid.New()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	// Create fails if the document exists, so an id collision cannot overwrite a record.
	if _, err := s.doc(rec.ID).Create(ctx, toDoc(rec)); err != nil {
		return uuid.Nil, &analysis.PersistenceError{Op: "create resume analysis", Cause: err}
	}
	return rec.ID, nil
}

func (s *Store) FindByIDForOwner(ctx context.Context, id, ownerID uuid.UUID) (*types.ResumeAnalysis, error) {
	snap, err := s.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, &analysis.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, &analysis.PersistenceError{Op: "get resume analysis", Cause: err}
	}
	rec, err := fromSnapshot(snap)
	if err != nil {
		return nil, &analysis.PersistenceError{Op: "decode resume analysis", Cause: err}
	}
	if rec.OwnerID != ownerID {
		return nil, &analysis.NotFoundError{ID: id}
	}
	return rec, nil
}

func (s *Store) FindByLocatorForOwner(ctx context.Context, locator string, ownerID uuid.UUID) (*types.ResumeAnalysis, error) {
	docs, err := s.client.Collection(s.collection).
		Where("owner_id", "==", ownerID.String()).
		Where("source_file.storage_locator", "==", locator).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, &analysis.PersistenceError{Op: "get resume analysis by locator", Cause: err}
	}
	if len(docs) == 0 {
		return nil, &analysis.NotFoundError{}
	}
	rec, err := fromSnapshot(docs[0])
	if err != nil {
		return nil, &analysis.PersistenceError{Op: "decode resume analysis", Cause: err}
	}
	return rec, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]types.ResumeAnalysis, error) {
	iter := s.client.Collection(s.collection).
		Where("owner_id", "==", ownerID.String()).
		OrderBy("created_at", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	out := []types.ResumeAnalysis{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, &analysis.PersistenceError{Op: "list resume analyses", Cause: err}
		}
		rec, err := fromSnapshot(snap)
		if err != nil {
			return nil, &analysis.PersistenceError{Op: "decode resume analysis", Cause: err}
		}
		out = append(out, *rec)
	}
	return out, nil
}

// UpdateRewriteMarkdown updates the single field inside a transaction that also checks ownership.
func (s *Store) UpdateRewriteMarkdown(ctx context.Context, id, ownerID uuid.UUID, markdown string) (*types.ResumeAnalysis, error) {
	ref := s.doc(id)
	var updated *types.ResumeAnalysis

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		rec, err := fromSnapshot(snap)
		if err != nil {
			return err
		}
		if rec.OwnerID != ownerID {
			return errNotOwned
		}

		now := s.now().UTC()
		md := markdown
		rec.Analysis.RewrittenResumeMarkdown = &md
		rec.UpdatedAt = now
		updated = rec

		return tx.Update(ref, []firestore.Update{
			{Path: "analysis.rewritten_resume_markdown", Value: markdown},
			{Path: "updated_at", Value: now},
		})
	})
	if err != nil {
		return nil, mapTxError(err, id, "update rewrite markdown")
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	ref := s.doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc analysisDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if doc.OwnerID != ownerID.String() {
			return errNotOwned
		}
		return tx.Delete(ref)
	})
	if err != nil {
		return mapTxError(err, id, "delete resume analysis")
	}
	return nil
}

func mapTxError(err error, id uuid.UUID, op string) error {
	if errors.Is(err, errNotOwned) || status.Code(err) == codes.NotFound {
		return &analysis.NotFoundError{ID: id}
	}
	return &analysis.PersistenceError{Op: op, Cause: err}
}

func toDoc(rec *types.ResumeAnalysis) analysisDoc {
	return analysisDoc{
		OwnerID:        rec.OwnerID.String(),
		SourceFile:     rec.SourceFile,
		JobTitle:       rec.JobTitle,
		JobDescription: rec.JobDescription,
		Analysis:       rec.Analysis,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func fromDoc(id string, doc analysisDoc) (*types.ResumeAnalysis, error) {
	recID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid document id %q: %w", id, err)
	}
	ownerID, err := uuid.Parse(doc.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", doc.OwnerID, err)
	}
	rec := &types.ResumeAnalysis{
		ID:             recID,
		OwnerID:        ownerID,
		SourceFile:     doc.SourceFile,
		JobTitle:       doc.JobTitle,
		JobDescription: doc.JobDescription,
		Analysis:       doc.Analysis,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	rec.Analysis.Normalize()
	return rec, nil
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (*types.ResumeAnalysis, error) {
	var doc analysisDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return fromDoc(snap.Ref.ID, doc)
}

var _ analysis.Store = (*Store)(nil)
