// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/jobprep/internal/ratelimit"
	"github.com/jonathan/jobprep/internal/types"
	"github.com/jonathan/jobprep/internal/workflow"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintJobPosting outputs a human-readable summary of an ingested posting.
func (p *Printer) PrintJobPosting(job *types.JobPosting) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:    %s\n", job.Title))
	sb.WriteString(fmt.Sprintf("Company:  %s\n", job.Company))
	if job.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", job.Location))
	}
	if job.SalaryRange != "" {
		sb.WriteString(fmt.Sprintf("Salary:   %s\n", job.SalaryRange))
	}
	if job.ExperienceLevel != "" {
		sb.WriteString(fmt.Sprintf("Level:    %s\n", job.ExperienceLevel))
	}
	sb.WriteString(fmt.Sprintf("ID:       %s", job.ID))

	p.printBox("INGESTED JOB POSTING", sb.String())
}

// PrintJobOutcome outputs one job's stage-by-stage processing result.
func (p *Printer) PrintJobOutcome(outcome *workflow.JobOutcome) {
	if outcome == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s at %s\n", outcome.JobTitle, outcome.CompanyName))
	sb.WriteString(fmt.Sprintf("Status: %s (%s)\n", outcome.OverallStatus,
		outcome.ProcessingTime.Round(time.Millisecond)))
	sb.WriteString("\n")

	for _, rec := range outcome.OrderedStages() {
		marker := statusMarker(rec.Status)
		sb.WriteString(fmt.Sprintf("  %s %s: %s", marker, rec.Name, rec.Status))
		if rec.ErrorMessage != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", rec.ErrorMessage))
		}
		sb.WriteString("\n")
	}

	if n := len(outcome.Artifacts.Emails); n > 0 {
		sb.WriteString(fmt.Sprintf("\nEmails drafted: %d\n", n))
	}
	if pkg := outcome.Artifacts.Documents; pkg != nil {
		sb.WriteString(fmt.Sprintf("Documents: %d (%d bytes)\n", len(pkg.Documents), pkg.TotalSize))
	}

	p.printBox("JOB OUTCOME", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBatchResult outputs the aggregate result of a batch run, with the
// per-job breakdown capped to keep large batches readable.
func (p *Printer) PrintBatchResult(result *workflow.BatchResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Request:  %s\n", result.RequestID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", result.OverallStatus))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", result.TotalProcessingTime.Round(time.Millisecond)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Jobs: %d total, %d successful, %d failed, %d skipped\n",
		result.TotalJobs, result.SuccessfulJobs, result.FailedJobs, result.SkippedJobs))

	outcomes := make([]*workflow.JobOutcome, 0, len(result.JobResults))
	for _, outcome := range result.JobResults {
		outcomes = append(outcomes, outcome)
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].CompanyName < outcomes[j].CompanyName
	})

	count := min(len(outcomes), maxItemsToShow)
	for i := 0; i < count; i++ {
		o := outcomes[i]
		sb.WriteString(fmt.Sprintf("  %s %s at %s: %s\n",
			statusMarker(o.OverallStatus), o.JobTitle, o.CompanyName, o.OverallStatus))
	}
	if len(outcomes) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(outcomes)-maxItemsToShow))
	}

	p.printBox("BATCH RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintServiceLimits outputs the state of every upstream service governor.
func (p *Printer) PrintServiceLimits(statuses map[string]ratelimit.Status) {
	if len(statuses) == 0 {
		return
	}

	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		st := statuses[name]
		sb.WriteString(fmt.Sprintf("%s: %d/%d tokens, %d/%d this hour",
			name, st.AvailableTokens, st.BurstLimit, st.RequestsLastHour, st.HourlyLimit))
		if st.InBackoff {
			sb.WriteString(fmt.Sprintf(" [backoff %s after %d failures]",
				st.BackoffRemaining.Round(time.Second), st.ConsecutiveFailures))
		}
		sb.WriteString("\n")
	}

	p.printBox("SERVICE RATE LIMITS", strings.TrimSuffix(sb.String(), "\n"))
}

func statusMarker(status workflow.Status) string {
	switch status {
	case workflow.StatusCompleted:
		return "✓"
	case workflow.StatusFailed:
		return "✗"
	case workflow.StatusSkipped:
		return "-"
	default:
		return "•"
	}
}
