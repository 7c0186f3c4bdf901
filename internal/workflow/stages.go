package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jobprep/internal/types"
)

// maxEmailContacts caps how many contacts receive a drafted email per job.
const maxEmailContacts = 3

// Filter decides whether a job posting is worth pursuing.
type Filter interface {
	Decide(ctx context.Context, job *types.JobPosting, criteria *types.FilterCriteria) (*types.FilterDecision, error)
}

// ResumeCustomizer tailors the base resume to one job posting.
type ResumeCustomizer interface {
	Customize(ctx context.Context, job *types.JobPosting) (*types.CustomizedResume, error)
}

// ContactFinder discovers outreach contacts at a company.
type ContactFinder interface {
	Find(ctx context.Context, company, domain string) (*types.ContactSearchResult, error)
}

// EmailGenerator drafts an outreach email for one contact. The customized
// resume is optional; generators degrade gracefully without it.
type EmailGenerator interface {
	Generate(ctx context.Context, job *types.JobPosting, contact types.Contact, resume *types.CustomizedResume, template string) (*types.GeneratedEmail, error)
}

// DocumentGenerator renders the application document package.
type DocumentGenerator interface {
	Render(ctx context.Context, job *types.JobPosting, resume *types.CustomizedResume, formats []string) (*types.DocumentPackage, error)
}

// CachedStageResult is a previously persisted successful stage result.
type CachedStageResult struct {
	Summary  map[string]any
	Artifact json.RawMessage
}

// ResultStore is the persistence boundary consumed by the core.
type ResultStore interface {
	GetJob(ctx context.Context, id uuid.UUID) (*types.JobPosting, error)
	LoadStageResult(ctx context.Context, jobID uuid.UUID, stage Stage) (*CachedStageResult, error)
	SaveStageResult(ctx context.Context, jobID uuid.UUID, stage Stage, summary map[string]any, artifact any) error
	SaveJobOutcome(ctx context.Context, requestID string, outcome *JobOutcome) error
	SaveBatchResult(ctx context.Context, result *BatchResult) error
}

// StageHandler is the contract every pipeline stage implements. The pipeline
// iterates a fixed ordered list of handlers rather than branching on stage
// identity.
type StageHandler interface {
	Name() Stage
	// Enabled reports whether the batch request enables this stage.
	Enabled(req *BatchRequest) bool
	// CheckPrerequisites returns a dependency_missing error when a required
	// prior artifact is absent, nil otherwise.
	CheckPrerequisites(art *Artifacts) *StageError
	// Run invokes the collaborator and stores its output into art,
	// returning a short result summary.
	Run(ctx context.Context, job *types.JobPosting, art *Artifacts, req *BatchRequest) (map[string]any, error)
	// Artifact returns this stage's output from art, for persistence.
	Artifact(art *Artifacts) any
	// HydrateCached restores this stage's output into art from a cached result.
	HydrateCached(art *Artifacts, raw json.RawMessage) error
}

// Collaborators bundles the external services the stage handlers call.
type Collaborators struct {
	Filter     Filter
	Customizer ResumeCustomizer
	Contacts   ContactFinder
	Emails     EmailGenerator
	Documents  DocumentGenerator
}

// Handlers returns the stage handlers in fixed execution order.
func Handlers(c Collaborators) []StageHandler {
	return []StageHandler{
		&filterStage{filter: c.Filter},
		&customizeStage{customizer: c.Customizer},
		&contactsStage{finder: c.Contacts},
		&emailsStage{generator: c.Emails},
		&documentsStage{renderer: c.Documents},
	}
}

// -----------------------------------------------------------------------------
// Filter
// -----------------------------------------------------------------------------

type filterStage struct {
	filter Filter
}

func (s *filterStage) Name() Stage                    { return StageFilter }
func (s *filterStage) Enabled(req *BatchRequest) bool { return req.EnableFiltering }

func (s *filterStage) CheckPrerequisites(*Artifacts) *StageError { return nil }

func (s *filterStage) Run(ctx context.Context, job *types.JobPosting, art *Artifacts, req *BatchRequest) (map[string]any, error) {
	decision, err := s.filter.Decide(ctx, job, req.FilterCriteria)
	if err != nil {
		return nil, err
	}
	art.FilterDecision = decision
	return map[string]any{
		"decision":   string(decision.Decision),
		"confidence": decision.Confidence,
	}, nil
}

func (s *filterStage) Artifact(art *Artifacts) any { return art.FilterDecision }

func (s *filterStage) HydrateCached(art *Artifacts, raw json.RawMessage) error {
	var decision types.FilterDecision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return err
	}
	art.FilterDecision = &decision
	return nil
}

// -----------------------------------------------------------------------------
// Resume customization
// -----------------------------------------------------------------------------

type customizeStage struct {
	customizer ResumeCustomizer
}

func (s *customizeStage) Name() Stage                    { return StageCustomizeResume }
func (s *customizeStage) Enabled(req *BatchRequest) bool { return req.EnableResumeCustomizing }

func (s *customizeStage) CheckPrerequisites(*Artifacts) *StageError { return nil }

func (s *customizeStage) Run(ctx context.Context, job *types.JobPosting, art *Artifacts, _ *BatchRequest) (map[string]any, error) {
	resume, err := s.customizer.Customize(ctx, job)
	if err != nil {
		return nil, err
	}
	art.Resume = resume
	return map[string]any{
		"resume_id":  resume.ID.String(),
		"confidence": resume.Confidence,
	}, nil
}

func (s *customizeStage) Artifact(art *Artifacts) any { return art.Resume }

func (s *customizeStage) HydrateCached(art *Artifacts, raw json.RawMessage) error {
	var resume types.CustomizedResume
	if err := json.Unmarshal(raw, &resume); err != nil {
		return err
	}
	art.Resume = &resume
	return nil
}

// -----------------------------------------------------------------------------
// Contact finding
// -----------------------------------------------------------------------------

type contactsStage struct {
	finder ContactFinder
}

func (s *contactsStage) Name() Stage                    { return StageFindContacts }
func (s *contactsStage) Enabled(req *BatchRequest) bool { return req.EnableContactFinding }

func (s *contactsStage) CheckPrerequisites(*Artifacts) *StageError { return nil }

func (s *contactsStage) Run(ctx context.Context, job *types.JobPosting, art *Artifacts, _ *BatchRequest) (map[string]any, error) {
	result, err := s.finder.Find(ctx, job.Company, job.Domain)
	if err != nil {
		return nil, err
	}
	art.Contacts = result
	return map[string]any{
		"contacts_found": result.TotalFound,
		"methods_used":   result.MethodsUsed,
	}, nil
}

func (s *contactsStage) Artifact(art *Artifacts) any { return art.Contacts }

func (s *contactsStage) HydrateCached(art *Artifacts, raw json.RawMessage) error {
	var result types.ContactSearchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	art.Contacts = &result
	return nil
}

// -----------------------------------------------------------------------------
// Email generation
// -----------------------------------------------------------------------------

type emailsStage struct {
	generator EmailGenerator
}

func (s *emailsStage) Name() Stage                    { return StageGenerateEmails }
func (s *emailsStage) Enabled(req *BatchRequest) bool { return req.EnableEmailGeneration }

// CheckPrerequisites requires at least one discovered contact. The customized
// resume is optional: email generation degrades gracefully without it.
func (s *emailsStage) CheckPrerequisites(art *Artifacts) *StageError {
	if art.Contacts == nil || len(art.Contacts.Contacts) == 0 {
		return dependencyMissing(StageGenerateEmails, "no contacts available for email generation")
	}
	return nil
}

func (s *emailsStage) Run(ctx context.Context, job *types.JobPosting, art *Artifacts, req *BatchRequest) (map[string]any, error) {
	contacts := art.Contacts.Contacts
	if len(contacts) > maxEmailContacts {
		contacts = contacts[:maxEmailContacts]
	}

	var emails []types.GeneratedEmail
	var lastErr error
	for _, contact := range contacts {
		email, err := s.generator.Generate(ctx, job, contact, art.Resume, req.EmailTemplate)
		if err != nil {
			lastErr = err
			continue
		}
		emails = append(emails, *email)
	}
	if len(emails) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("no emails were generated: %w", lastErr)
		}
		return nil, fmt.Errorf("no emails were generated")
	}
	art.Emails = emails

	var totalScore float64
	for _, email := range emails {
		totalScore += email.PersonalizationScore
	}
	return map[string]any{
		"emails_generated":          len(emails),
		"avg_personalization_score": totalScore / float64(len(emails)),
	}, nil
}

func (s *emailsStage) Artifact(art *Artifacts) any { return art.Emails }

func (s *emailsStage) HydrateCached(art *Artifacts, raw json.RawMessage) error {
	var emails []types.GeneratedEmail
	if err := json.Unmarshal(raw, &emails); err != nil {
		return err
	}
	if len(emails) == 0 {
		return fmt.Errorf("cached email result is empty")
	}
	art.Emails = emails
	return nil
}

// -----------------------------------------------------------------------------
// Document generation
// -----------------------------------------------------------------------------

type documentsStage struct {
	renderer DocumentGenerator
}

func (s *documentsStage) Name() Stage                    { return StageGenerateDocuments }
func (s *documentsStage) Enabled(req *BatchRequest) bool { return req.EnableDocumentGeneration }

// CheckPrerequisites requires the customized resume.
func (s *documentsStage) CheckPrerequisites(art *Artifacts) *StageError {
	if art.Resume == nil {
		return dependencyMissing(StageGenerateDocuments, "no customized resume available for document generation")
	}
	return nil
}

func (s *documentsStage) Run(ctx context.Context, job *types.JobPosting, art *Artifacts, req *BatchRequest) (map[string]any, error) {
	pkg, err := s.renderer.Render(ctx, job, art.Resume, req.DocumentFormats)
	if err != nil {
		return nil, err
	}
	art.Documents = pkg

	formats := make([]string, 0, len(pkg.Documents))
	for _, doc := range pkg.Documents {
		formats = append(formats, doc.Format)
	}
	return map[string]any{
		"documents_generated": len(pkg.Documents),
		"formats":             formats,
		"total_size":          pkg.TotalSize,
	}, nil
}

func (s *documentsStage) Artifact(art *Artifacts) any { return art.Documents }

func (s *documentsStage) HydrateCached(art *Artifacts, raw json.RawMessage) error {
	var pkg types.DocumentPackage
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return err
	}
	art.Documents = &pkg
	return nil
}

func timeNow() *time.Time {
	now := time.Now()
	return &now
}
