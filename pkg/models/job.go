package models

import "time"

// JobStatus represents the lifecycle state of a background job.
type JobStatus string

const (
	// JobStatusPending indicates the job has been accepted but not started.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates the job is running.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates the job finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job finished with an error.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true once the job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job tracks one background generation task. A job transitions to exactly
// one terminal state and is immutable afterwards, apart from registry
// garbage collection.
type Job struct {
	// ID is the globally unique job identifier.
	ID string `json:"id"`
	// Status is the current lifecycle state.
	Status JobStatus `json:"status"`
	// Progress is the completion estimate in [0,100].
	Progress int `json:"progress"`
	// Step is the human-readable current-step label.
	Step string `json:"step,omitempty"`
	// Model is the model selected at submission.
	Model string `json:"model"`
	// Complexity is the classified complexity at submission.
	Complexity TaskComplexity `json:"complexity"`
	// ContextTier is the context tier selected at submission.
	ContextTier ContextTier `json:"context_tier"`
	// StartedAt is when the job was created.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the job reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Result is the generation outcome, set on completion.
	Result *GenerationResult `json:"result,omitempty"`
	// Error contains the failure message if the job failed.
	Error string `json:"error,omitempty"`
}

// JobHandle is the projection returned to a caller at submission time.
type JobHandle struct {
	JobID       string         `json:"job_id"`
	Status      JobStatus      `json:"status"`
	Model       string         `json:"model"`
	Complexity  TaskComplexity `json:"complexity"`
	ContextTier ContextTier    `json:"context_tier"`
}
