// Package jobs provides the in-memory registry for asynchronous generation
// jobs: submission, status polling, long-poll waits, cancellation, and
// garbage collection.
package jobs

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zimalabs/genflow/internal/orchestrator"
	"github.com/zimalabs/genflow/pkg/models"
)

var (
	// ErrJobNotFound is returned for unknown job identifiers.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobTerminal is returned when cancelling an already-finished job.
	ErrJobTerminal = errors.New("job already in a terminal state")
	// ErrStillProcessing signals a long-poll wait that hit its deadline
	// while the job was still running. Not a failure.
	ErrStillProcessing = errors.New("job still processing")
)

const (
	// pollInterval is the long-poll check period.
	pollInterval = 500 * time.Millisecond
	// maxWait bounds a single long-poll call.
	maxWait = 300 * time.Second
	// retention is how long job records live before the sweep removes them,
	// measured from start time regardless of status.
	retention = time.Hour
)

// Runner is the subset of the orchestrator the registry drives.
type Runner interface {
	Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error)
	ExecuteParallel(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error)
	Plan(prompt string, messageCount int) (models.TaskComplexity, string, models.ContextTier)
}

// Registry tracks background jobs. The job map is the only shared state and
// is guarded by one mutex; background workers communicate with pollers purely
// through it.
type Registry struct {
	runner Runner

	mu   sync.RWMutex
	jobs map[string]*models.Job

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Registry and starts the hourly record sweep.
func New(runner Runner) *Registry {
	r := &Registry{
		runner: runner,
		jobs:   make(map[string]*models.Job),
		stopCh: make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

// Submit registers a new job and launches its work in the background,
// returning immediately with the routing metadata.
func (r *Registry) Submit(req *models.GenerationRequest) (*models.JobHandle, error) {
	complexity, model, tier := r.runner.Plan(req.Prompt, len(req.Messages))

	job := &models.Job{
		ID:          uuid.New().String(),
		Status:      models.JobStatusPending,
		Progress:    0,
		Step:        "queued",
		Model:       model,
		Complexity:  complexity,
		ContextTier: tier,
		StartedAt:   time.Now(),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	go r.run(job.ID, req)

	return &models.JobHandle{
		JobID:       job.ID,
		Status:      job.Status,
		Model:       job.Model,
		Complexity:  job.Complexity,
		ContextTier: job.ContextTier,
	}, nil
}

// run executes one job to a terminal state. Exactly one terminal transition
// happens per job; a concurrent Cancel wins and the late result is dropped.
func (r *Registry) run(jobID string, req *models.GenerationRequest) {
	r.update(jobID, models.JobStatusProcessing, 10, "starting generation")

	progressDone := make(chan struct{})
	go r.tickProgress(jobID, progressDone)

	var result *models.GenerationResult
	var err error
	if orchestrator.CanParallelize(req.Prompt) {
		r.update(jobID, models.JobStatusProcessing, 20, "running sub-tasks")
		result, err = r.runner.ExecuteParallel(context.Background(), req)
	} else {
		result, err = r.runner.Generate(context.Background(), req)
	}
	close(progressDone)

	if err != nil {
		r.fail(jobID, err.Error())
		return
	}
	if !result.Success {
		r.failWithResult(jobID, result)
		return
	}
	r.complete(jobID, result)
}

// tickProgress nudges the progress estimate while work is in flight so
// pollers see movement on long generations.
func (r *Registry) tickProgress(jobID string, done <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.mu.Lock()
			job, ok := r.jobs[jobID]
			if ok && !job.Status.Terminal() && job.Progress < 90 {
				job.Progress += 10
			}
			r.mu.Unlock()
		}
	}
}

// update sets non-terminal status fields, skipping jobs already terminal.
func (r *Registry) update(jobID string, status models.JobStatus, progress int, step string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = status
	job.Progress = progress
	job.Step = step
}

func (r *Registry) complete(jobID string, result *models.GenerationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return
	}
	now := time.Now()
	job.Status = models.JobStatusCompleted
	job.Progress = 100
	job.Step = "done"
	job.CompletedAt = &now
	job.Result = result
}

func (r *Registry) fail(jobID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failLocked(jobID, message, nil)
}

// failWithResult records a failed generation, keeping the partial result so
// async callers get the same failure detail as synchronous ones.
func (r *Registry) failWithResult(jobID string, result *models.GenerationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failLocked(jobID, result.Message, result)
}

func (r *Registry) failLocked(jobID, message string, result *models.GenerationResult) {
	job, ok := r.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return
	}
	now := time.Now()
	job.Status = models.JobStatusFailed
	job.Step = "failed"
	job.CompletedAt = &now
	job.Error = message
	job.Result = result
}

// GetStatus returns a snapshot of the job.
func (r *Registry) GetStatus(jobID string) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// WaitForCompletion polls until the job reaches a terminal state or the
// timeout elapses. The timeout is clamped to 300 seconds. A deadline hit
// returns the current snapshot together with ErrStillProcessing.
func (r *Registry) WaitForCompletion(ctx context.Context, jobID string, timeout time.Duration) (*models.Job, error) {
	if timeout <= 0 || timeout > maxWait {
		timeout = maxWait
	}
	deadline := time.Now().Add(timeout)

	for {
		job, err := r.GetStatus(jobID)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		if time.Now().After(deadline) {
			return job, ErrStillProcessing
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Cancel marks a non-terminal job as failed with a cancellation error. The
// in-flight invocation is not interrupted; its late result is discarded when
// it tries to transition an already-terminal job.
func (r *Registry) Cancel(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status.Terminal() {
		return ErrJobTerminal
	}
	now := time.Now()
	job.Status = models.JobStatusFailed
	job.Step = "cancelled"
	job.CompletedAt = &now
	job.Error = "cancelled"
	return nil
}

// Cleanup removes all jobs started more than an hour ago, regardless of
// status, and returns how many were removed. Blunt on purpose: a record a
// client has not polled in an hour is treated as abandoned.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, job := range r.jobs {
		if time.Since(job.StartedAt) > retention {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// Len returns the current number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Cleanup(); n > 0 {
				log.Printf("[jobs] removed %d expired job records", n)
			}
		case <-r.stopCh:
			return
		}
	}
}

// Stop terminates the background sweep.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
}
