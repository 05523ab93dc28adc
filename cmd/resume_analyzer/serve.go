package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/jonathan/resume-analyzer/internal/analysis"
	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/docstore"
	"github.com/jonathan/resume-analyzer/internal/entitlement"
	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/notify"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/rendering"
	"github.com/jonathan/resume-analyzer/internal/server"
	"github.com/jonathan/resume-analyzer/internal/server/ratelimit"
	"github.com/jonathan/resume-analyzer/internal/storage"
	"github.com/spf13/cobra"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that accepts resume uploads, runs ATS analyses and serves rewrites as PDF.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply database migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadAppConfig()
	if err != nil {
		return err
	}
	if err := requireServeSecrets(cfg); err != nil {
		return err
	}
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)

	// Users always live in Postgres; analyses follow RECORD_STORE.
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	if serveMigrate {
		if err := database.Migrate(ctx); err != nil {
			return err
		}
	}

	records, closeRecords, err := openRecordStore(ctx, cfg, database)
	if err != nil {
		return err
	}
	defer closeRecords()

	blobs, err := storage.Open(ctx, storageConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}
	defer closeIfCloser(blobs)

	ai, err := llm.NewClient(ctx, llm.ConfigFromEnv(), cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}
	defer ai.Close()

	events, err := openEvents(cfg)
	if err != nil {
		return err
	}
	defer events.Close()

	gate := entitlement.NewGate(database, cfg.EntitledEmails)
	tasks := pipeline.NewTasks(cfg.BackgroundConcurrency)

	orchestrator, err := pipeline.New(pipeline.Deps{
		Blobs:   blobs,
		AI:      ai,
		Records: records,
		Gate:    gate,
		Events:  events,
		Tasks:   tasks,
	}, pipeline.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Port:           servePort,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RequestBudget:  cfg.RequestBudget,
	}, server.Deps{
		Users:     database,
		Records:   records,
		Blobs:     blobs,
		Analyzer:  orchestrator,
		Renderer:  rendering.NewPDFRenderer(cfg.ChromePath),
		Gate:      gate,
		JWT:       jwtConfig,
		Passwords: passwordConfig,
		Tasks:     tasks,
		RateLimit: ratelimit.LoadConfig(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

func requireServeSecrets(cfg *config.AppConfig) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required for the user store")
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	return nil
}

// openRecordStore returns the configured analysis store and its cleanup.
func openRecordStore(ctx context.Context, cfg *config.AppConfig, database *db.DB) (analysis.Store, func(), error) {
	switch cfg.RecordStore {
	case config.RecordStoreFirestore:
		client, err := docstore.NewFirestoreClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, nil, err
		}
		store := docstore.New(client, "")
		return store, func() { _ = store.Close() }, nil
	case config.RecordStorePostgres:
		if database == nil {
			return nil, nil, fmt.Errorf("postgres record store requires a database connection")
		}
		return db.NewAnalysisStore(database), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown record store %q", cfg.RecordStore)
	}
}

func storageConfig(cfg *config.AppConfig) storage.Config {
	return storage.Config{
		Backend:   cfg.StorageBackend,
		LocalDir:  cfg.UploadDir,
		S3Bucket:  cfg.S3Bucket,
		S3Region:  cfg.S3Region,
		S3Prefix:  cfg.S3Prefix,
		GCSBucket: cfg.GCSBucket,
		GCSPrefix: cfg.GCSPrefix,
	}
}

// openEvents connects to the broker when AMQP_URL is set.
func openEvents(cfg *config.AppConfig) (notify.Publisher, error) {
	if cfg.AMQPURL == "" {
		return notify.NopPublisher{}, nil
	}
	publisher, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, err
	}
	log.Printf("[notify] publishing events to exchange %s", cfg.AMQPExchange)
	return publisher, nil
}

func closeIfCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
