package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore keeps blobs as files in a single directory.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates the directory if absent and returns a store rooted there.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "uploads"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &LocalStore{baseDir: abs}, nil
}

// Dir returns the absolute storage root.
func (s *LocalStore) Dir() string {
	return s.baseDir
}

func (s *LocalStore) Put(ctx context.Context, data []byte, suggestedName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	locator := NewLocator(suggestedName)
	target, err := s.resolve(locator)
	if err != nil {
		return "", err
	}

	// Write to a temp file in the same directory so readers never see a partial blob.
	tmp, err := os.CreateTemp(s.baseDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("rename blob: %w", err)
	}
	return locator, nil
}

func (s *LocalStore) Get(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func (s *LocalStore) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.resolve(locator)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// resolve maps a validated locator to a path that is guaranteed to sit directly under baseDir.
func (s *LocalStore) resolve(locator string) (string, error) {
	if err := ValidateLocator(locator); err != nil {
		return "", err
	}
	full := filepath.Join(s.baseDir, locator)
	if filepath.Dir(full) != s.baseDir {
		return "", ErrInvalidLocator
	}
	return full, nil
}

var _ BlobStore = (*LocalStore)(nil)
