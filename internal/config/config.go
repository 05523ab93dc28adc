// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Rewrite modes control when the optimized-resume rewrite runs.
const (
	RewriteBackground = "background"
	RewriteInline     = "inline"
	RewriteDisabled   = "disabled"
)

// Record store backends.
const (
	RecordStorePostgres  = "postgres"
	RecordStoreFirestore = "firestore"
)

// DefaultMaxUploadBytes is the 50MB submission cap.
const DefaultMaxUploadBytes int64 = 50 * 1024 * 1024

// AppConfig is the service-wide configuration. JWT, password and rate-limit
// settings have their own constructors.
type AppConfig struct {
	DatabaseURL  string
	GeminiAPIKey string

	RecordStore        string
	FirestoreProjectID string

	StorageBackend string
	UploadDir      string
	S3Bucket       string
	S3Region       string
	S3Prefix       string
	GCSBucket      string
	GCSPrefix      string

	EntitledEmails []string

	RewriteMode          string
	RewriteReferencePath string
	RewriteTimeout       time.Duration

	PollInterval    time.Duration
	PollMaxAttempts int
	RequestBudget   time.Duration
	MaxUploadBytes  int64

	BackgroundConcurrency int

	AMQPURL      string
	AMQPExchange string

	ChromePath string
}

// LoadAppConfig reads AppConfig from environment variables and validates it.
func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		RecordStore:           strings.ToLower(getEnv("RECORD_STORE", RecordStorePostgres)),
		FirestoreProjectID:    os.Getenv("FIRESTORE_PROJECT_ID"),
		StorageBackend:        strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		UploadDir:             getEnv("UPLOAD_DIR", "uploads"),
		S3Bucket:              os.Getenv("S3_BUCKET"),
		S3Region:              os.Getenv("S3_REGION"),
		S3Prefix:              os.Getenv("S3_PREFIX"),
		GCSBucket:             os.Getenv("GCS_BUCKET"),
		GCSPrefix:             os.Getenv("GCS_PREFIX"),
		EntitledEmails:        ParseEmailList(os.Getenv("ENTITLED_EMAILS")),
		RewriteMode:           strings.ToLower(getEnv("REWRITE_MODE", RewriteBackground)),
		RewriteReferencePath:  os.Getenv("REWRITE_REFERENCE_PATH"),
		AMQPURL:               os.Getenv("AMQP_URL"),
		AMQPExchange:          getEnv("AMQP_EXCHANGE", "resume.events"),
		ChromePath:            os.Getenv("CHROME_PATH"),
		PollMaxAttempts:       300,
		BackgroundConcurrency: 4,
		MaxUploadBytes:        DefaultMaxUploadBytes,
	}

	var err error
	if cfg.PollInterval, err = getEnvDuration("POLL_INTERVAL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestBudget, err = getEnvDuration("REQUEST_BUDGET", 90*time.Second); err != nil {
		return nil, err
	}
	if cfg.RewriteTimeout, err = getEnvDuration("REWRITE_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PollMaxAttempts, err = getEnvInt("POLL_MAX_ATTEMPTS", cfg.PollMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.BackgroundConcurrency, err = getEnvInt("BACKGROUND_CONCURRENCY", cfg.BackgroundConcurrency); err != nil {
		return nil, err
	}
	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes))
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *AppConfig) normalize() error {
	switch c.RewriteMode {
	case RewriteBackground, RewriteInline, RewriteDisabled:
	default:
		return fmt.Errorf("invalid REWRITE_MODE %q (want background, inline or disabled)", c.RewriteMode)
	}
	switch c.RecordStore {
	case RecordStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres record store")
		}
	case RecordStoreFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required for the firestore record store")
		}
	default:
		return fmt.Errorf("invalid RECORD_STORE %q (want postgres or firestore)", c.RecordStore)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got: %s", c.PollInterval)
	}
	if c.PollMaxAttempts < 1 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be at least 1, got: %d", c.PollMaxAttempts)
	}
	if c.RequestBudget < time.Second {
		return fmt.Errorf("REQUEST_BUDGET must be at least 1s, got: %s", c.RequestBudget)
	}
	if c.RewriteTimeout <= 0 {
		return fmt.Errorf("REWRITE_TIMEOUT must be positive, got: %s", c.RewriteTimeout)
	}
	if c.MaxUploadBytes < 1 || c.MaxUploadBytes > DefaultMaxUploadBytes {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be between 1 and %d, got: %d", DefaultMaxUploadBytes, c.MaxUploadBytes)
	}
	if c.BackgroundConcurrency < 1 {
		return fmt.Errorf("BACKGROUND_CONCURRENCY must be at least 1, got: %d", c.BackgroundConcurrency)
	}
	return nil
}

// ParseEmailList splits a comma-separated allow-list, lowercasing and dropping blanks.
func ParseEmailList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		email := strings.ToLower(strings.TrimSpace(part))
		if email != "" {
			out = append(out, email)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return d, nil
}
