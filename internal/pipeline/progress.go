// Package pipeline runs the resume analysis submission from upload to persisted record,
// followed by the optional rewrite stage.
package pipeline

import "github.com/google/uuid"

// Stage is one state of a submission.
type Stage string

const (
	StageReceived        Stage = "received"
	StageBlobStored      Stage = "blob_stored"
	StageIngested        Stage = "ingested"
	StageRemoteProcessed Stage = "remote_processed"
	StageGenerated       Stage = "generated"
	StageParsed          Stage = "parsed"
	StagePersisted       Stage = "persisted"
	StageRewriteRunning  Stage = "rewrite_running"
	StageRewriteDone     Stage = "rewrite_done"
	StageRewriteSkipped  Stage = "rewrite_skipped"
	StageRewriteFailed   Stage = "rewrite_failed"
	StageFileReleased    Stage = "file_released"
)

// ProgressEvent represents a stage transition during a submission
type ProgressEvent struct {
	Stage      Stage     `json:"stage"`
	AnalysisID uuid.UUID `json:"analysis_id,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// ProgressCallback is called on every stage transition. It may be called from a background goroutine.
type ProgressCallback func(event ProgressEvent)

func (o *Orchestrator) emitProgress(stage Stage, id uuid.UUID, message string) {
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(ProgressEvent{Stage: stage, AnalysisID: id, Message: message})
	}
}
