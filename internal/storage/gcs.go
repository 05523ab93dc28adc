package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	gcs "cloud.google.com/go/storage"
)

// GCSStore keeps blobs in a Cloud Storage bucket under an optional prefix.
type GCSStore struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	prefix string
}

// NewGCSStore creates a GCS-backed store using application default credentials.
func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: normalizePrefix(prefix),
	}, nil
}

// Put writes with a DoesNotExist precondition; locators are random so a collision is an error.
func (s *GCSStore) Put(ctx context.Context, data []byte, suggestedName string) (string, error) {
	locator := NewLocator(suggestedName)
	name := applyPrefix(s.prefix, locator)

	w := s.bucket.Object(name).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = http.DetectContentType(data)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write to GCS object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize GCS write %s: %w", name, err)
	}
	return locator, nil
}

func (s *GCSStore) Get(ctx context.Context, locator string) ([]byte, error) {
	if err := ValidateLocator(locator); err != nil {
		return nil, err
	}
	name := applyPrefix(s.prefix, locator)

	r, err := s.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open GCS object %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %s: %w", name, err)
	}
	return data, nil
}

func (s *GCSStore) Delete(ctx context.Context, locator string) error {
	if err := ValidateLocator(locator); err != nil {
		return err
	}
	name := applyPrefix(s.prefix, locator)

	if err := s.bucket.Object(name).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %s: %w", name, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ BlobStore = (*GCSStore)(nil)
