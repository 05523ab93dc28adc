package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/resume-analyzer/internal/analysis"
	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/entitlement"
	"github.com/jonathan/resume-analyzer/internal/ingestion"
	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/notify"
	"github.com/jonathan/resume-analyzer/internal/storage"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// Validation messages returned to the submitter.
const (
	MsgMissingFields = "Missing required fields: file, jobTitle, jobDescription"
	MsgOnlyPDF       = "Only PDF files are allowed"
)

// releaseTimeout bounds the remote file deletion, which runs on its own context.
const releaseTimeout = 30 * time.Second

// Entitlements is the slice of the access policy the orchestrator needs.
type Entitlements interface {
	IsEntitled(ctx context.Context, principalID uuid.UUID, feature entitlement.Feature) bool
}

// Deps are the collaborators of an Orchestrator. Events may be nil.
type Deps struct {
	Blobs   storage.BlobStore
	AI      llm.FileClient
	Records analysis.Store
	Gate    Entitlements
	Events  notify.Publisher
	Tasks   *Tasks
}

// Options tune the orchestrator. Zero values take the documented defaults.
type Options struct {
	// RewriteMode is config.RewriteBackground (default), RewriteInline, or RewriteDisabled.
	RewriteMode     string
	PollInterval    time.Duration
	PollMaxAttempts int
	// RequestBudget is the deadline for the synchronous part; 0 disables it.
	RequestBudget  time.Duration
	RewriteTimeout time.Duration
	MaxUploadBytes int64
	// ReferencePath optionally points at a markdown resume the rewrite should start from.
	ReferencePath string
	OnProgress    ProgressCallback
}

// OptionsFromConfig maps service configuration to orchestrator options.
func OptionsFromConfig(cfg *config.AppConfig) Options {
	return Options{
		RewriteMode:     cfg.RewriteMode,
		PollInterval:    cfg.PollInterval,
		PollMaxAttempts: cfg.PollMaxAttempts,
		RequestBudget:   cfg.RequestBudget,
		RewriteTimeout:  cfg.RewriteTimeout,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		ReferencePath:   cfg.RewriteReferencePath,
	}
}

func (o Options) withDefaults() Options {
	switch o.RewriteMode {
	case config.RewriteBackground, config.RewriteInline, config.RewriteDisabled:
	default:
		o.RewriteMode = config.RewriteBackground
	}
	if o.PollInterval <= 0 {
		o.PollInterval = llm.DefaultPollInterval
	}
	if o.PollMaxAttempts <= 0 {
		o.PollMaxAttempts = llm.DefaultPollMaxAttempts
	}
	if o.RewriteTimeout <= 0 {
		o.RewriteTimeout = 10 * time.Minute
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = config.DefaultMaxUploadBytes
	}
	return o
}

// Orchestrator drives one submission through storage, the AI client, and the record store.
type Orchestrator struct {
	deps     Deps
	opts     Options
	validate *validator.Validate
}

// New creates an Orchestrator. Tasks is created when absent; Events defaults to a no-op.
func New(deps Deps, opts Options) (*Orchestrator, error) {
	switch {
	case deps.Blobs == nil:
		return nil, fmt.Errorf("blob store is required")
	case deps.AI == nil:
		return nil, fmt.Errorf("AI client is required")
	case deps.Records == nil:
		return nil, fmt.Errorf("record store is required")
	case deps.Gate == nil:
		return nil, fmt.Errorf("entitlement gate is required")
	}
	if deps.Events == nil {
		deps.Events = notify.NopPublisher{}
	}
	if deps.Tasks == nil {
		deps.Tasks = NewTasks(DefaultBackgroundConcurrency)
	}
	return &Orchestrator{deps: deps, opts: opts.withDefaults(), validate: validator.New()}, nil
}

// Submission is one upload with its job context.
type Submission struct {
	OwnerID        uuid.UUID
	FileName       string
	MIMEType       string
	Data           []byte `validate:"gt=0"`
	JobTitle       string `validate:"required"`
	JobDescription string `validate:"required"`
}

func (o *Orchestrator) validateSubmission(sub *Submission) error {
	if sub.OwnerID == uuid.Nil {
		return &analysis.ValidationError{Field: "owner", Message: "owner is required"}
	}
	sub.JobTitle = strings.TrimSpace(sub.JobTitle)
	sub.JobDescription = strings.TrimSpace(sub.JobDescription)

	if err := o.validate.Struct(sub); err != nil {
		return &analysis.ValidationError{Message: MsgMissingFields}
	}
	if sub.MIMEType != ingestion.MIMETypePDF || !ingestion.LooksLikePDF(sub.Data) {
		return &analysis.ValidationError{Field: "file", Message: MsgOnlyPDF}
	}
	if int64(len(sub.Data)) > o.opts.MaxUploadBytes {
		return &analysis.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("File exceeds the %dMB limit", o.opts.MaxUploadBytes/(1024*1024)),
		}
	}
	return nil
}

// Submit runs the synchronous part of the pipeline and returns once the record is persisted.
// The rewrite stage is scheduled afterwards according to RewriteMode.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) (*types.CreateAnalysisResponse, error) {
	if err := o.validateSubmission(&sub); err != nil {
		return nil, err
	}
	o.emitProgress(StageReceived, uuid.Nil, sub.FileName)

	if o.opts.RequestBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.RequestBudget)
		defer cancel()
	}

	locator, err := o.deps.Blobs.Put(ctx, sub.Data, sub.FileName)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	o.emitProgress(StageBlobStored, uuid.Nil, "")

	file, err := o.deps.AI.Ingest(ctx, sub.Data, displayName(sub.FileName), ingestion.MIMETypePDF)
	if err != nil {
		log.Printf("[pipeline] ingest failed for blob %s: %v", locator, err)
		return nil, err
	}
	o.emitProgress(StageIngested, uuid.Nil, file.Name)

	// Until the rewrite stage takes ownership of the remote file, it is released here.
	handedOff := false
	defer func() {
		if !handedOff {
			o.release(file, uuid.Nil)
		}
	}()

	if err := o.deps.AI.AwaitProcessed(ctx, file, o.opts.PollInterval, o.opts.PollMaxAttempts); err != nil {
		log.Printf("[pipeline] remote processing failed for blob %s: %v", locator, err)
		return nil, err
	}
	o.emitProgress(StageRemoteProcessed, uuid.Nil, "")

	raw, err := o.deps.AI.Generate(ctx, llm.TierStandard, AnalysisPromptParts(sub.JobTitle, sub.JobDescription, file)...)
	if err != nil {
		log.Printf("[pipeline] generation failed for blob %s: %v", locator, err)
		return nil, err
	}
	o.emitProgress(StageGenerated, uuid.Nil, "")

	result, ok := analysis.ParseResult(raw)
	if !ok {
		log.Printf("[pipeline] structured response unparseable for blob %s, using fallback", locator)
	}
	o.emitProgress(StageParsed, uuid.Nil, "")

	rec := &types.ResumeAnalysis{
		OwnerID: sub.OwnerID,
		SourceFile: types.SourceFile{
			StorageLocator:   locator,
			OriginalFileName: sub.FileName,
			MIMEType:         ingestion.MIMETypePDF,
			ByteSize:         int64(len(sub.Data)),
			PageCount:        ingestion.PageCount(sub.Data),
		},
		JobTitle:       sub.JobTitle,
		JobDescription: sub.JobDescription,
		Analysis:       result,
	}
	id, err := o.deps.Records.Create(ctx, rec)
	if err != nil {
		var perr *analysis.PersistenceError
		if !errors.As(err, &perr) {
			err = &analysis.PersistenceError{Op: "create resume analysis", Cause: err}
		}
		return nil, err
	}
	o.emitProgress(StagePersisted, id, "")
	log.Printf("[pipeline] analysis %s persisted (score %d)", id, result.ATSScore)

	score := result.ATSScore
	notify.Emit(ctx, o.deps.Events, notify.Event{
		Type: notify.AnalysisCompleted, AnalysisID: id, OwnerID: sub.OwnerID, ATSScore: &score,
	})

	resp := &types.CreateAnalysisResponse{ID: id, Analysis: result}
	job := rewriteJob{
		recordID:       id,
		ownerID:        sub.OwnerID,
		file:           file,
		jobTitle:       sub.JobTitle,
		jobDescription: sub.JobDescription,
		result:         result,
	}

	switch o.opts.RewriteMode {
	case config.RewriteDisabled:
		o.emitProgress(StageRewriteSkipped, id, "rewrite disabled")
	case config.RewriteInline:
		handedOff = true
		runContained("rewrite "+id.String(), func() { o.runRewrite(context.WithoutCancel(ctx), job) })
	default:
		err := o.deps.Tasks.Go("rewrite "+id.String(), func(bg context.Context) { o.runRewrite(bg, job) })
		if err != nil {
			log.Printf("[pipeline] rewrite for %s not scheduled: %v", id, err)
			o.emitProgress(StageRewriteSkipped, id, err.Error())
		} else {
			handedOff = true
			resp.RewritePending = true
		}
	}
	return resp, nil
}

type rewriteJob struct {
	recordID       uuid.UUID
	ownerID        uuid.UUID
	file           *llm.RemoteFile
	jobTitle       string
	jobDescription string
	result         types.AnalysisResult
}

// runRewrite owns job.file and releases it on every path.
func (o *Orchestrator) runRewrite(ctx context.Context, job rewriteJob) {
	defer o.release(job.file, job.recordID)

	ctx, cancel := context.WithTimeout(ctx, o.opts.RewriteTimeout)
	defer cancel()

	if !o.deps.Gate.IsEntitled(ctx, job.ownerID, entitlement.RewriteGeneration) {
		o.emitProgress(StageRewriteSkipped, job.recordID, "owner not entitled")
		return
	}

	o.emitProgress(StageRewriteRunning, job.recordID, "")
	if err := o.rewrite(ctx, job); err != nil {
		log.Printf("[rewrite] analysis %s: %v", job.recordID, err)
		o.emitProgress(StageRewriteFailed, job.recordID, err.Error())
		notify.Emit(context.WithoutCancel(ctx), o.deps.Events, notify.Event{
			Type: notify.RewriteFailed, AnalysisID: job.recordID, OwnerID: job.ownerID, Reason: failureReason(err),
		})
		return
	}

	o.emitProgress(StageRewriteDone, job.recordID, "")
	log.Printf("[rewrite] analysis %s updated with rewritten resume", job.recordID)
	notify.Emit(context.WithoutCancel(ctx), o.deps.Events, notify.Event{
		Type: notify.RewriteCompleted, AnalysisID: job.recordID, OwnerID: job.ownerID,
	})
}

func (o *Orchestrator) rewrite(ctx context.Context, job rewriteJob) error {
	prompt := BuildRewritePrompt(o.loadReference(), job.jobTitle, job.jobDescription, job.result)

	raw, err := o.deps.AI.Generate(ctx, llm.TierStandard, llm.TextPart(prompt), llm.FilePart(job.file))
	if err != nil {
		return fmt.Errorf("generate rewrite: %w", err)
	}

	markdown := strings.TrimSpace(llm.StripMarkdownFences(raw))
	if markdown == "" {
		return &llm.GenerationError{Message: "rewrite response was empty"}
	}

	if _, err := o.deps.Records.UpdateRewriteMarkdown(ctx, job.recordID, job.ownerID, markdown); err != nil {
		return fmt.Errorf("store rewrite: %w", err)
	}
	return nil
}

// loadReference reads the optional reference resume. Absence is not an error.
func (o *Orchestrator) loadReference() string {
	if o.opts.ReferencePath == "" {
		return ""
	}
	data, err := os.ReadFile(o.opts.ReferencePath)
	if err != nil {
		log.Printf("[rewrite] reference resume unavailable: %v", err)
		return ""
	}
	return string(data)
}

func (o *Orchestrator) release(file *llm.RemoteFile, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if err := o.deps.AI.Release(ctx, file); err != nil {
		log.Printf("[pipeline] failed to release remote file %s: %v", file.Name, err)
	}
	o.emitProgress(StageFileReleased, id, file.Name)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, new(*llm.GenerationError)):
		return "generation"
	case errors.As(err, new(*analysis.NotFoundError)):
		return "record_deleted"
	default:
		return "error"
	}
}

func displayName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "resume.pdf"
	}
	return base
}
