// Package storage keeps uploaded resume documents in a local directory, S3, or GCS.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when no object exists for the locator.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidLocator is returned for locators that could escape the storage root.
var ErrInvalidLocator = errors.New("invalid storage locator")

// BlobStore persists opaque document bytes under server-generated locators.
type BlobStore interface {
	// Put stores data and returns its locator. suggestedName only contributes its extension.
	Put(ctx context.Context, data []byte, suggestedName string) (string, error)
	Get(ctx context.Context, locator string) ([]byte, error)
	// Delete removes the object. Deleting an absent object is not an error.
	Delete(ctx context.Context, locator string) error
}

// Backend names accepted by Open.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendGCS   = "gcs"
)

// Config selects and configures a backend.
type Config struct {
	Backend   string
	LocalDir  string
	S3Bucket  string
	S3Region  string
	S3Prefix  string
	GCSBucket string
	GCSPrefix string
}

// Open constructs the configured backend.
func Open(ctx context.Context, cfg Config) (BlobStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendLocal:
		return NewLocalStore(cfg.LocalDir)
	case BackendS3:
		return NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Prefix)
	case BackendGCS:
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

var (
	locatorPattern   = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	extensionPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)
)

// ValidateLocator rejects locators that are empty, contain path separators or
// traversal sequences, or use characters outside [A-Za-z0-9._-].
func ValidateLocator(locator string) error {
	if locator == "" || len(locator) > 255 {
		return ErrInvalidLocator
	}
	if strings.Contains(locator, "..") || strings.HasPrefix(locator, "/") {
		return ErrInvalidLocator
	}
	if !locatorPattern.MatchString(locator) {
		return ErrInvalidLocator
	}
	return nil
}

// NewLocator generates a random locator such as "resume-3f9c...e1.pdf".
func NewLocator(suggestedName string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(suggestedName, "\\", "/")))
	if !extensionPattern.MatchString(ext) {
		ext = ".pdf"
	}
	return "resume-" + randomID() + ext
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}
