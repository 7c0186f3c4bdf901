package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/jobprep/internal/ratelimit"
	"github.com/jonathan/jobprep/internal/types"
	"github.com/jonathan/jobprep/internal/workflow"
)

func TestPrintJobPosting(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	job := &types.JobPosting{
		ID:          uuid.New(),
		Title:       "Senior Engineer",
		Company:     "Acme Corp",
		Location:    "Remote",
		SalaryRange: "$150k-$180k",
	}

	p.PrintJobPosting(job)
	output := buf.String()

	assert.Contains(t, output, "INGESTED JOB POSTING")
	assert.Contains(t, output, "Senior Engineer")
	assert.Contains(t, output, "Acme Corp")
	assert.Contains(t, output, "Remote")
}

func TestPrintJobPosting_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintJobPosting(nil)
	assert.Empty(t, buf.String())
}

func TestPrintJobOutcome(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	outcome := &workflow.JobOutcome{
		JobID:          uuid.New(),
		JobTitle:       "Go Engineer",
		CompanyName:    "Initech",
		OverallStatus:  workflow.StatusFailed,
		ProcessingTime: 1500 * time.Millisecond,
		Stages: map[workflow.Stage]*workflow.StageRecord{
			workflow.StageFilter: {
				Name:   workflow.StageFilter,
				Status: workflow.StatusCompleted,
			},
			workflow.StageCustomizeResume: {
				Name:         workflow.StageCustomizeResume,
				Status:       workflow.StatusFailed,
				ErrorMessage: "llm unavailable",
			},
		},
	}

	p.PrintJobOutcome(outcome)
	output := buf.String()

	assert.Contains(t, output, "JOB OUTCOME")
	assert.Contains(t, output, "Go Engineer at Initech")
	assert.Contains(t, output, "llm unavailable")
	assert.Contains(t, output, "✓")
	assert.Contains(t, output, "✗")
}

func TestPrintBatchResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	jobID := uuid.New()
	result := &workflow.BatchResult{
		RequestID:      "batch_20260830_abc123",
		TotalJobs:      1,
		SuccessfulJobs: 1,
		OverallStatus:  workflow.StatusCompleted,
		JobResults: map[uuid.UUID]*workflow.JobOutcome{
			jobID: {
				JobID:         jobID,
				JobTitle:      "SRE",
				CompanyName:   "Acme",
				OverallStatus: workflow.StatusCompleted,
			},
		},
		TotalProcessingTime: 3 * time.Second,
	}

	p.PrintBatchResult(result)
	output := buf.String()

	assert.Contains(t, output, "BATCH RESULT")
	assert.Contains(t, output, "batch_20260830_abc123")
	assert.Contains(t, output, "1 total, 1 successful, 0 failed, 0 skipped")
	assert.Contains(t, output, "SRE at Acme")
}

func TestPrintBatchResult_CapsJobList(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	results := make(map[uuid.UUID]*workflow.JobOutcome)
	for i := 0; i < 8; i++ {
		id := uuid.New()
		results[id] = &workflow.JobOutcome{
			JobID:         id,
			JobTitle:      "Engineer",
			CompanyName:   "Company",
			OverallStatus: workflow.StatusCompleted,
		}
	}

	p.PrintBatchResult(&workflow.BatchResult{
		RequestID:      "batch_big",
		TotalJobs:      8,
		SuccessfulJobs: 8,
		JobResults:     results,
	})

	assert.Contains(t, buf.String(), "... and 3 more")
}

func TestPrintServiceLimits(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintServiceLimits(map[string]ratelimit.Status{
		"gemini": {
			Service:          "gemini",
			AvailableTokens:  3,
			BurstLimit:       5,
			RequestsLastHour: 12,
			HourlyLimit:      1500,
		},
		"hunter_io": {
			Service:             "hunter_io",
			InBackoff:           true,
			BackoffRemaining:    2 * time.Second,
			ConsecutiveFailures: 3,
		},
	})
	output := buf.String()

	assert.Contains(t, output, "SERVICE RATE LIMITS")
	assert.Contains(t, output, "gemini: 3/5 tokens, 12/1500 this hour")
	assert.Contains(t, output, "backoff 2s after 3 failures")
}

func TestPrintServiceLimits_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintServiceLimits(nil)
	assert.Empty(t, buf.String())
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 200))
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
}
