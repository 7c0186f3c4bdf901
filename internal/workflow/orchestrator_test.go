package workflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobprep/internal/types"
)

func filterOnlyRequest(jobIDs []uuid.UUID) *BatchRequest {
	req := NewBatchRequest(jobIDs)
	req.EnableResumeCustomizing = false
	req.EnableContactFinding = false
	req.EnableEmailGeneration = false
	req.EnableDocumentGeneration = false
	return req
}

func TestOrchestrator_InvalidRequest(t *testing.T) {
	o := NewOrchestrator(newMemStore(), newFakes().handlers())

	_, err := o.ProcessBatch(context.Background(), &BatchRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid batch request")
}

func TestOrchestrator_CountsPartitionJobs(t *testing.T) {
	good := testJob()
	rejected := &types.JobPosting{ID: uuid.New(), Title: "Sales Rep", Company: "Crypto Inc"}
	panicking := &types.JobPosting{ID: uuid.New(), Title: "Boom", Company: "Boom Co"}
	missing := uuid.New() // no stored job

	store := newMemStore(good, rejected, panicking)
	f := newFakes()
	f.filter.fn = func(job *types.JobPosting) (*types.FilterDecision, error) {
		switch job.ID {
		case rejected.ID:
			return &types.FilterDecision{Decision: types.DecisionReject, Confidence: 1}, nil
		case panicking.ID:
			panic("collaborator exploded")
		}
		return &types.FilterDecision{Decision: types.DecisionAccept, Confidence: 1}, nil
	}

	o := NewOrchestrator(store, f.handlers())
	result, err := o.ProcessBatch(context.Background(),
		filterOnlyRequest([]uuid.UUID{good.ID, rejected.ID, panicking.ID, missing}))
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalJobs)
	assert.Equal(t, 1, result.SuccessfulJobs)
	assert.Equal(t, 2, result.FailedJobs)
	assert.Equal(t, 1, result.SkippedJobs)
	assert.Equal(t, result.TotalJobs, result.SuccessfulJobs+result.FailedJobs+result.SkippedJobs)
	assert.Equal(t, StatusFailed, result.OverallStatus)

	// The panic became a general_error outcome, not a crash.
	boom := result.JobResults[panicking.ID]
	require.NotNil(t, boom)
	assert.Equal(t, StatusFailed, boom.OverallStatus)
	require.Contains(t, boom.Stages, StageGeneral)
	assert.Equal(t, KindUnexpected, boom.Stages[StageGeneral].ErrorKind)

	// The unknown job id failed to load.
	lost := result.JobResults[missing]
	require.NotNil(t, lost)
	assert.Equal(t, "job not found", lost.Stages[StageGeneral].ErrorMessage)

	require.NotNil(t, result.CompletedAt)
	assert.Len(t, store.batches, 1)
}

func TestOrchestrator_DuplicateJobIDsCountOnce(t *testing.T) {
	job := testJob()
	o := NewOrchestrator(newMemStore(job), newFakes().handlers())

	result, err := o.ProcessBatch(context.Background(),
		filterOnlyRequest([]uuid.UUID{job.ID, job.ID, job.ID}))
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalJobs)
	assert.Equal(t, 1, result.SuccessfulJobs)
}

func TestOrchestrator_AllRejectedIsSkipped(t *testing.T) {
	a, b := testJob(), testJob()
	f := newFakes()
	f.filter.fn = func(*types.JobPosting) (*types.FilterDecision, error) {
		return &types.FilterDecision{Decision: types.DecisionReject, Confidence: 1}, nil
	}

	o := NewOrchestrator(newMemStore(a, b), f.handlers())
	result, err := o.ProcessBatch(context.Background(), filterOnlyRequest([]uuid.UUID{a.ID, b.ID}))
	require.NoError(t, err)

	assert.Equal(t, 2, result.SkippedJobs)
	assert.Equal(t, StatusSkipped, result.OverallStatus)
}

func TestOrchestrator_RespectsConcurrencyCap(t *testing.T) {
	jobs := make([]*types.JobPosting, 6)
	ids := make([]uuid.UUID, 6)
	for i := range jobs {
		jobs[i] = testJob()
		ids[i] = jobs[i].ID
	}

	var running, peak int32
	f := newFakes()
	f.filter.fn = func(*types.JobPosting) (*types.FilterDecision, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return &types.FilterDecision{Decision: types.DecisionAccept, Confidence: 1}, nil
	}

	req := filterOnlyRequest(ids)
	req.MaxConcurrentJobs = 2

	o := NewOrchestrator(newMemStore(jobs...), f.handlers())
	result, err := o.ProcessBatch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 6, result.SuccessfulJobs)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestOrchestrator_EmitsProgressEvents(t *testing.T) {
	job := testJob()
	o := NewOrchestrator(newMemStore(job), newFakes().handlers())

	var mu sync.Mutex
	var events []ProgressEvent
	o.AddProgressCallback(func(event ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	})

	result, err := o.ProcessBatch(context.Background(), filterOnlyRequest([]uuid.UUID{job.ID}))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 4)
	assert.Equal(t, EventBatchStarted, events[0].Type)
	assert.Equal(t, EventJobStarted, events[1].Type)
	assert.Equal(t, EventJobCompleted, events[2].Type)
	assert.Equal(t, EventBatchCompleted, events[3].Type)

	assert.Equal(t, result.RequestID, events[0].RequestID)
	assert.Equal(t, job.ID, events[1].JobID)
	assert.Equal(t, job.Title, events[2].JobTitle)
	require.NotNil(t, events[2].Outcome)
	assert.Equal(t, StatusCompleted, events[2].Outcome.OverallStatus)
}

func TestOrchestrator_UnloadableJobGetsEventPair(t *testing.T) {
	missing := uuid.New() // no stored job
	o := NewOrchestrator(newMemStore(), newFakes().handlers())

	var mu sync.Mutex
	var types []string
	o.AddProgressCallback(func(event ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, event.Type)
	})

	result, err := o.ProcessBatch(context.Background(), filterOnlyRequest([]uuid.UUID{missing}))
	require.NoError(t, err)
	assert.Equal(t, 1, result.FailedJobs)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		EventBatchStarted, EventJobStarted, EventJobCompleted, EventBatchCompleted,
	}, types)
}

func TestOrchestrator_PanickingObserverIsContained(t *testing.T) {
	job := testJob()
	o := NewOrchestrator(newMemStore(job), newFakes().handlers())

	o.AddProgressCallback(func(ProgressEvent) { panic("observer bug") })

	var delivered int32
	o.AddProgressCallback(func(ProgressEvent) { atomic.AddInt32(&delivered, 1) })

	result, err := o.ProcessBatch(context.Background(), filterOnlyRequest([]uuid.UUID{job.ID}))
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessfulJobs)
	// Later callbacks still receive every event.
	assert.Equal(t, int32(4), atomic.LoadInt32(&delivered))
}

func TestOrchestrator_RequestIDsAreUnique(t *testing.T) {
	now := time.Now()
	a := newRequestID(now)
	b := newRequestID(now)

	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "batch_")
}
