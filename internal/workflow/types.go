// Package workflow provides the batch processing core: a per-job multi-stage
// state machine and the orchestrator that fans job pipelines out under a
// concurrency cap, aggregating the outcomes into a batch result.
package workflow

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/jobprep/internal/types"
)

// Stage identifies one unit of work in a job's pipeline.
type Stage string

// Pipeline stages in their fixed execution order.
const (
	StageFilter            Stage = "filter"
	StageCustomizeResume   Stage = "customize_resume"
	StageFindContacts      Stage = "find_contacts"
	StageGenerateEmails    Stage = "generate_emails"
	StageGenerateDocuments Stage = "generate_documents"

	// StageGeneral names the synthetic record attached to a job that failed
	// outside any real stage (job load failure, panic in the pipeline).
	StageGeneral Stage = "general_error"
)

// StageOrder is the fixed total order of pipeline stages. A job's pipeline is
// the subset enabled by the batch request, executed in this order.
var StageOrder = []Stage{
	StageFilter,
	StageCustomizeResume,
	StageFindContacts,
	StageGenerateEmails,
	StageGenerateDocuments,
}

// Status tracks the lifecycle of a stage or a whole job.
type Status string

// Status constants. Pending is initial; Completed, Failed and Skipped are terminal.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// StageRecord tracks the execution of one stage for one job. It is owned by
// the job pipeline that creates it and is not mutated once terminal.
type StageRecord struct {
	Name         Stage          `json:"name"`
	Status       Status         `json:"status"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	ErrorKind    ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Summary      map[string]any `json:"summary,omitempty"`
}

// Artifacts accumulates the outputs of completed stages as a job moves
// through its pipeline. Each field is set by exactly one stage.
type Artifacts struct {
	FilterDecision *types.FilterDecision      `json:"filter_decision,omitempty"`
	Resume         *types.CustomizedResume    `json:"resume,omitempty"`
	Contacts       *types.ContactSearchResult `json:"contacts,omitempty"`
	Emails         []types.GeneratedEmail     `json:"emails,omitempty"`
	Documents      *types.DocumentPackage     `json:"documents,omitempty"`
}

// JobOutcome is the complete processing result for a single job. It is
// read-only once the owning pipeline finishes.
type JobOutcome struct {
	JobID          uuid.UUID              `json:"job_id"`
	JobTitle       string                 `json:"job_title"`
	CompanyName    string                 `json:"company_name"`
	OverallStatus  Status                 `json:"overall_status"`
	Stages         map[Stage]*StageRecord `json:"stages"`
	Artifacts      Artifacts              `json:"artifacts"`
	ProcessingTime time.Duration          `json:"processing_time"`
	CreatedAt      time.Time              `json:"created_at"`
}

// OrderedStages returns the job's stage records in fixed stage order,
// with the general-error record (if any) last.
func (o *JobOutcome) OrderedStages() []*StageRecord {
	records := make([]*StageRecord, 0, len(o.Stages))
	for _, stage := range StageOrder {
		if rec, exists := o.Stages[stage]; exists {
			records = append(records, rec)
		}
	}
	if rec, exists := o.Stages[StageGeneral]; exists {
		records = append(records, rec)
	}
	return records
}

// BatchRequest configures one batch processing run. It is immutable input.
type BatchRequest struct {
	JobIDs                   []uuid.UUID           `json:"job_ids" validate:"min=1"`
	EnableFiltering          bool                  `json:"enable_filtering"`
	EnableResumeCustomizing  bool                  `json:"enable_resume_customization"`
	EnableContactFinding     bool                  `json:"enable_contact_finding"`
	EnableEmailGeneration    bool                  `json:"enable_email_generation"`
	EnableDocumentGeneration bool                  `json:"enable_document_generation"`
	FilterCriteria           *types.FilterCriteria `json:"filter_criteria,omitempty"`
	EmailTemplate            string                `json:"email_template" validate:"required"`
	DocumentFormats          []string              `json:"document_formats" validate:"min=1,dive,oneof=html pdf markdown"`
	MaxConcurrentJobs        int                   `json:"max_concurrent_jobs" validate:"gte=1"`
}

// NewBatchRequest returns a request for the given job ids with every stage
// enabled and the default template, formats and concurrency.
func NewBatchRequest(jobIDs []uuid.UUID) *BatchRequest {
	return &BatchRequest{
		JobIDs:                   jobIDs,
		EnableFiltering:          true,
		EnableResumeCustomizing:  true,
		EnableContactFinding:     true,
		EnableEmailGeneration:    true,
		EnableDocumentGeneration: true,
		EmailTemplate:            "professional",
		DocumentFormats:          []string{types.FormatHTML, types.FormatPDF, types.FormatMarkdown},
		MaxConcurrentJobs:        3,
	}
}

var validate = validator.New()

// Validate checks the request invariants (at least one job, valid document
// formats, max_concurrent_jobs >= 1).
func (r *BatchRequest) Validate() error {
	return validate.Struct(r)
}

// uniqueJobIDs returns the job ids deduplicated, preserving first-seen order.
func (r *BatchRequest) uniqueJobIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(r.JobIDs))
	ids := make([]uuid.UUID, 0, len(r.JobIDs))
	for _, id := range r.JobIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// BatchResult is the aggregate outcome of one batch run.
// Invariant: TotalJobs == SuccessfulJobs + FailedJobs + SkippedJobs.
type BatchResult struct {
	RequestID           string                    `json:"request_id"`
	TotalJobs           int                       `json:"total_jobs"`
	SuccessfulJobs      int                       `json:"successful_jobs"`
	FailedJobs          int                       `json:"failed_jobs"`
	SkippedJobs         int                       `json:"skipped_jobs"`
	JobResults          map[uuid.UUID]*JobOutcome `json:"job_results"`
	OverallStatus       Status                    `json:"overall_status"`
	TotalProcessingTime time.Duration             `json:"total_processing_time"`
	CreatedAt           time.Time                 `json:"created_at"`
	CompletedAt         *time.Time                `json:"completed_at,omitempty"`
}
