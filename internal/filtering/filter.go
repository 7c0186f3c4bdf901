// Package filtering decides whether stored job postings are worth pursuing.
// Cheap rule-based checks run first; postings that survive them go to the LLM.
package filtering

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/jobprep/internal/llm"
	"github.com/jonathan/jobprep/internal/prompts"
	"github.com/jonathan/jobprep/internal/ratelimit"
	"github.com/jonathan/jobprep/internal/schemas"
	"github.com/jonathan/jobprep/internal/types"
)

// Filterer evaluates job postings against filter criteria.
type Filterer struct {
	client llm.Client
	limits *ratelimit.Registry
}

// New creates a Filterer backed by the given LLM client and rate governor.
func New(client llm.Client, limits *ratelimit.Registry) *Filterer {
	return &Filterer{client: client, limits: limits}
}

// Decide evaluates one job posting. Rule-based rejections short-circuit
// without an LLM call.
func (f *Filterer) Decide(ctx context.Context, job *types.JobPosting, criteria *types.FilterCriteria) (*types.FilterDecision, error) {
	if criteria == nil {
		criteria = &types.FilterCriteria{}
	}

	if decision := screen(job, criteria); decision != nil {
		return decision, nil
	}

	criteriaJSON, err := json.Marshal(criteria)
	if err != nil {
		return nil, &DecideError{Message: "failed to encode criteria", Cause: err}
	}

	template := prompts.MustGet("filtering.json", "decide")
	prompt := prompts.Format(template, map[string]string{
		"Title":       job.Title,
		"Company":     job.Company,
		"Location":    job.Location,
		"SalaryRange": job.SalaryRange,
		"Description": job.Description,
		"Criteria":    string(criteriaJSON),
	})

	if err := f.limits.Acquire(ctx, ratelimit.ServiceGemini); err != nil {
		return nil, err
	}

	responseText, err := f.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		f.limits.RecordFailure(ratelimit.ServiceGemini)
		return nil, &DecideError{Message: "LLM call failed", Cause: err}
	}
	f.limits.RecordSuccess(ratelimit.ServiceGemini)

	if err := schemas.Validate(schemas.FilterDecision, []byte(responseText)); err != nil {
		return nil, &DecideError{Message: "response failed schema validation", Cause: err}
	}

	var decision types.FilterDecision
	if err := json.Unmarshal([]byte(responseText), &decision); err != nil {
		return nil, &DecideError{Message: "failed to parse response", Cause: err}
	}

	return &decision, nil
}

// screen applies the criteria that do not need a model. Returns a rejection
// decision, or nil when the posting should go to the LLM.
func screen(job *types.JobPosting, criteria *types.FilterCriteria) *types.FilterDecision {
	haystack := strings.ToLower(job.Title + " " + job.Description)

	for _, keyword := range criteria.ExcludeKeywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			return &types.FilterDecision{
				Decision:   types.DecisionReject,
				Confidence: 1.0,
				Reasoning:  fmt.Sprintf("posting matches excluded keyword %q", keyword),
			}
		}
	}

	if criteria.RemoteOnly && job.Location != "" &&
		!strings.Contains(strings.ToLower(job.Location), "remote") {
		return &types.FilterDecision{
			Decision:   types.DecisionReject,
			Confidence: 0.9,
			Reasoning:  fmt.Sprintf("remote-only search but posting location is %q", job.Location),
		}
	}

	return nil
}
