// Package ingestion turns job posting URLs into stored JobPosting records.
// It fetches the page, extracts the posting text with platform-aware
// selectors and asks the LLM for the structured fields.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jobprep/internal/fetch"
	"github.com/jonathan/jobprep/internal/llm"
	"github.com/jonathan/jobprep/internal/prompts"
	"github.com/jonathan/jobprep/internal/ratelimit"
	"github.com/jonathan/jobprep/internal/schemas"
	"github.com/jonathan/jobprep/internal/types"
)

// IngestError represents a failure to ingest a job posting
type IngestError struct {
	URL     string
	Message string
	Cause   error
}

func (e *IngestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ingestion failed for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("ingestion failed for %s: %s", e.URL, e.Message)
}

func (e *IngestError) Unwrap() error {
	return e.Cause
}

// Ingestor fetches and parses job postings.
type Ingestor struct {
	client     llm.Client
	limits     *ratelimit.Registry
	fetcher    *fetch.CachedFetcher
	useBrowser bool
}

// New creates an Ingestor. The page cache may be nil.
func New(client llm.Client, limits *ratelimit.Registry, cache fetch.PageCache, useBrowser bool) *Ingestor {
	return &Ingestor{
		client:     client,
		limits:     limits,
		fetcher:    fetch.NewCachedFetcher(cache, &fetch.CachedFetcherConfig{Gate: fetchGate(limits)}),
		useBrowser: useBrowser,
	}
}

// fetchGate holds live page fetches to the scraping budget. LinkedIn gets
// its own tighter service so board scraping cannot starve it.
func fetchGate(limits *ratelimit.Registry) func(ctx context.Context, urlStr string) error {
	return func(ctx context.Context, urlStr string) error {
		service := ratelimit.ServiceScrape
		if fetch.DetectPlatform(urlStr) == fetch.PlatformLinkedIn {
			service = ratelimit.ServiceLinkedIn
		}
		return limits.Acquire(ctx, service)
	}
}

// extraction mirrors the JSON shape the LLM returns.
type extraction struct {
	Title           string `json:"title"`
	Company         string `json:"company"`
	Domain          string `json:"domain"`
	Location        string `json:"location"`
	SalaryRange     string `json:"salary_range"`
	EmploymentType  string `json:"employment_type"`
	ExperienceLevel string `json:"experience_level"`
	Requirements    string `json:"requirements"`
}

// FromURL fetches a posting URL and returns the structured job posting.
// The returned posting has a fresh ID; persisting it is the caller's job.
func (in *Ingestor) FromURL(ctx context.Context, urlStr string) (*types.JobPosting, error) {
	platform := fetch.DetectPlatform(urlStr)
	contentSelectors := fetch.PlatformContentSelectors(platform)
	noiseSelectors := fetch.PlatformNoiseSelectors(platform)

	result, err := in.fetcher.Fetch(ctx, urlStr)
	if err != nil {
		return nil, &IngestError{URL: urlStr, Message: "fetch failed", Cause: err}
	}

	text, err := fetch.ExtractMainText(result.HTML, contentSelectors, noiseSelectors...)
	if err != nil {
		return nil, &IngestError{URL: urlStr, Message: "content extraction failed", Cause: err}
	}

	// JavaScript-heavy boards serve a near-empty shell over plain HTTP.
	if in.useBrowser && fetch.ShouldUseBrowser(text) {
		if browserHTML, browserErr := fetch.Render(ctx, urlStr, fetch.DefaultRenderTimeout); browserErr == nil {
			if rendered, extractErr := fetch.ExtractMainText(browserHTML, contentSelectors, noiseSelectors...); extractErr == nil {
				text = rendered
			}
		}
	}

	text = CleanText(text)
	if text == "" {
		return nil, &IngestError{URL: urlStr, Message: "no posting text extracted"}
	}

	extracted, err := in.extract(ctx, text)
	if err != nil {
		return nil, &IngestError{URL: urlStr, Message: "structured extraction failed", Cause: err}
	}

	now := time.Now().UTC()
	return &types.JobPosting{
		ID:              uuid.New(),
		Title:           extracted.Title,
		Company:         extracted.Company,
		Domain:          extracted.Domain,
		Description:     text,
		URL:             urlStr,
		Location:        extracted.Location,
		SalaryRange:     extracted.SalaryRange,
		EmploymentType:  extracted.EmploymentType,
		ExperienceLevel: extracted.ExperienceLevel,
		Requirements:    extracted.Requirements,
		PostedAt:        &now,
	}, nil
}

// extract asks the LLM for the structured posting fields.
func (in *Ingestor) extract(ctx context.Context, text string) (*extraction, error) {
	template := prompts.MustGet("ingestion.json", "extract-posting")
	prompt := prompts.Format(template, map[string]string{"Text": text})

	if err := in.limits.Acquire(ctx, ratelimit.ServiceGemini); err != nil {
		return nil, err
	}

	responseText, err := in.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		in.limits.RecordFailure(ratelimit.ServiceGemini)
		return nil, err
	}
	in.limits.RecordSuccess(ratelimit.ServiceGemini)

	if err := schemas.Validate(schemas.JobPosting, []byte(responseText)); err != nil {
		return nil, err
	}

	var extracted extraction
	if err := json.Unmarshal([]byte(responseText), &extracted); err != nil {
		return nil, err
	}
	return &extracted, nil
}
