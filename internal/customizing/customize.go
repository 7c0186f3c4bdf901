// Package customizing tailors the candidate's base resume to individual job
// postings using LLM rewriting.
package customizing

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jobprep/internal/llm"
	"github.com/jonathan/jobprep/internal/prompts"
	"github.com/jonathan/jobprep/internal/ratelimit"
	"github.com/jonathan/jobprep/internal/schemas"
	"github.com/jonathan/jobprep/internal/types"
)

// Customizer produces per-job resume customizations from a base resume profile.
type Customizer struct {
	client  llm.Client
	limits  *ratelimit.Registry
	profile string
}

// New creates a Customizer. The profile is the candidate's base resume as
// plain text; it is included verbatim in the customization prompt.
func New(client llm.Client, limits *ratelimit.Registry, profile string) *Customizer {
	return &Customizer{client: client, limits: limits, profile: profile}
}

// Customize tailors the base resume to one job posting.
func (c *Customizer) Customize(ctx context.Context, job *types.JobPosting) (*types.CustomizedResume, error) {
	if strings.TrimSpace(c.profile) == "" {
		return nil, &CustomizeError{Message: "base resume profile is empty"}
	}

	template := prompts.MustGet("customizing.json", "customize")
	prompt := prompts.Format(template, map[string]string{
		"Profile":      c.profile,
		"Title":        job.Title,
		"Company":      job.Company,
		"Description":  job.Description,
		"Requirements": job.Requirements,
	})

	if err := c.limits.Acquire(ctx, ratelimit.ServiceGemini); err != nil {
		return nil, err
	}

	responseText, err := c.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		c.limits.RecordFailure(ratelimit.ServiceGemini)
		return nil, &CustomizeError{Message: "LLM call failed", Cause: err}
	}
	c.limits.RecordSuccess(ratelimit.ServiceGemini)

	if err := schemas.Validate(schemas.CustomizedResume, []byte(responseText)); err != nil {
		return nil, &CustomizeError{Message: "response failed schema validation", Cause: err}
	}

	var resume types.CustomizedResume
	if err := json.Unmarshal([]byte(responseText), &resume); err != nil {
		return nil, &CustomizeError{Message: "failed to parse response", Cause: err}
	}

	resume.ID = uuid.New()
	resume.JobID = job.ID
	resume.CreatedAt = time.Now().UTC()

	return &resume, nil
}
