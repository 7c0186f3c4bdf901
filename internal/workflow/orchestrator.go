package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Progress event types emitted by the orchestrator.
const (
	EventBatchStarted   = "batch_started"
	EventJobStarted     = "job_started"
	EventJobCompleted   = "job_completed"
	EventBatchCompleted = "batch_completed"
)

// ProgressEvent is an observer notification emitted during batch processing.
type ProgressEvent struct {
	Type        string     `json:"type"`
	RequestID   string     `json:"request_id"`
	JobID       uuid.UUID  `json:"job_id,omitempty"`
	JobTitle    string     `json:"job_title,omitempty"`
	CompanyName string     `json:"company_name,omitempty"`
	Status      Status     `json:"status,omitempty"`
	Message     string     `json:"message,omitempty"`
	Outcome     *JobOutcome `json:"outcome,omitempty"`
}

// ProgressCallback receives progress events. Callbacks are fire-and-forget:
// a panicking or slow observer must not affect pipeline execution.
type ProgressCallback func(event ProgressEvent)

// Orchestrator runs the job pipelines for a batch request with bounded
// parallelism, aggregates the outcomes and persists the batch result.
type Orchestrator struct {
	store    ResultStore
	pipeline *Pipeline

	mu        sync.Mutex
	callbacks []ProgressCallback
}

// NewOrchestrator creates an orchestrator over the given store and stage
// handlers.
func NewOrchestrator(store ResultStore, handlers []StageHandler) *Orchestrator {
	return &Orchestrator{
		store:    store,
		pipeline: NewPipeline(store, handlers),
	}
}

// AddProgressCallback registers an observer for progress events.
func (o *Orchestrator) AddProgressCallback(callback ProgressCallback) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callbacks = append(o.callbacks, callback)
}

// notify delivers an event to every registered callback, containing any
// observer panic so it cannot disturb the batch.
func (o *Orchestrator) notify(event ProgressEvent) {
	o.mu.Lock()
	callbacks := make([]ProgressCallback, len(o.callbacks))
	copy(callbacks, o.callbacks)
	o.mu.Unlock()

	for _, callback := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Warning: progress callback panicked: %v", r)
				}
			}()
			callback(event)
		}()
	}
}

// ProcessBatch runs every job in the request through its pipeline, with at
// most MaxConcurrentJobs pipelines executing concurrently. Every submitted
// job id lands in exactly one of the successful/failed/skipped buckets, so
// TotalJobs == SuccessfulJobs + FailedJobs + SkippedJobs always holds.
func (o *Orchestrator) ProcessBatch(ctx context.Context, req *BatchRequest) (*BatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch request: %w", err)
	}

	jobIDs := req.uniqueJobIDs()
	start := time.Now()
	result := &BatchResult{
		RequestID:     newRequestID(start),
		TotalJobs:     len(jobIDs),
		JobResults:    make(map[uuid.UUID]*JobOutcome, len(jobIDs)),
		OverallStatus: StatusInProgress,
		CreatedAt:     start,
	}

	log.Printf("Starting batch %s for %d jobs (max %d concurrent)", result.RequestID, len(jobIDs), req.MaxConcurrentJobs)
	o.notify(ProgressEvent{
		Type:      EventBatchStarted,
		RequestID: result.RequestID,
		Message:   fmt.Sprintf("Processing %d jobs", len(jobIDs)),
	})

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(req.MaxConcurrentJobs)

	for _, jobID := range jobIDs {
		g.Go(func() error {
			outcome := o.runJob(ctx, result.RequestID, jobID, req)

			mu.Lock()
			result.JobResults[jobID] = outcome
			mu.Unlock()

			if err := o.store.SaveJobOutcome(ctx, result.RequestID, outcome); err != nil {
				log.Printf("Warning: failed to save outcome for job %s: %v", jobID, err)
			}
			o.notify(ProgressEvent{
				Type:        EventJobCompleted,
				RequestID:   result.RequestID,
				JobID:       jobID,
				JobTitle:    outcome.JobTitle,
				CompanyName: outcome.CompanyName,
				Status:      outcome.OverallStatus,
				Outcome:     outcome,
			})
			return nil
		})
	}
	_ = g.Wait() // per-job errors never escape runJob

	// Every submitted job id counts in exactly one bucket.
	for _, jobID := range jobIDs {
		outcome, exists := result.JobResults[jobID]
		if !exists {
			outcome = failedOutcome(jobID, KindUnexpected, "job produced no outcome")
			result.JobResults[jobID] = outcome
		}
		switch outcome.OverallStatus {
		case StatusCompleted:
			result.SuccessfulJobs++
		case StatusSkipped:
			result.SkippedJobs++
		default:
			result.FailedJobs++
		}
	}

	end := time.Now()
	result.CompletedAt = &end
	result.TotalProcessingTime = end.Sub(start)
	result.OverallStatus = overallBatchStatus(result)

	if err := o.store.SaveBatchResult(ctx, result); err != nil {
		log.Printf("Warning: failed to save batch result %s: %v", result.RequestID, err)
	}

	log.Printf("Batch %s completed: %d successful, %d failed, %d skipped of %d",
		result.RequestID, result.SuccessfulJobs, result.FailedJobs, result.SkippedJobs, result.TotalJobs)
	o.notify(ProgressEvent{
		Type:      EventBatchCompleted,
		RequestID: result.RequestID,
		Status:    result.OverallStatus,
		Message: fmt.Sprintf("%d successful, %d failed, %d skipped",
			result.SuccessfulJobs, result.FailedJobs, result.SkippedJobs),
	})

	return result, nil
}

// runJob executes one job's pipeline, converting every possible escape
// (load failure, panic) into a Failed outcome so the batch always receives a
// terminal JobOutcome for every job id.
func (o *Orchestrator) runJob(ctx context.Context, requestID string, jobID uuid.UUID, req *BatchRequest) (outcome *JobOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Warning: pipeline for job %s panicked: %v", jobID, r)
			outcome = failedOutcome(jobID, KindUnexpected, fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	// Started is announced before the load so every job id gets a
	// started/completed pair, even when the job cannot be loaded.
	o.notify(ProgressEvent{
		Type:      EventJobStarted,
		RequestID: requestID,
		JobID:     jobID,
	})

	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return failedOutcome(jobID, KindExternalService, fmt.Sprintf("failed to load job: %v", err))
	}
	if job == nil {
		return failedOutcome(jobID, KindExternalService, "job not found")
	}

	return o.pipeline.Run(ctx, job, req)
}

// overallBatchStatus derives the batch status from the aggregate counts:
// completed when nothing failed and at least one job succeeded, skipped when
// every job was filtered out, failed otherwise. An empty batch is completed.
func overallBatchStatus(result *BatchResult) Status {
	switch {
	case result.TotalJobs == 0:
		return StatusCompleted
	case result.SkippedJobs == result.TotalJobs:
		return StatusSkipped
	case result.FailedJobs == 0 && result.SuccessfulJobs > 0:
		return StatusCompleted
	default:
		return StatusFailed
	}
}

// newRequestID builds a sortable, unique batch request id.
func newRequestID(t time.Time) string {
	return fmt.Sprintf("batch_%s_%s", t.Format("20060102_150405"), uuid.NewString()[:8])
}
