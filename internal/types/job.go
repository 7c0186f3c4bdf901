// Package types defines the shared domain types for the job application
// preparation pipeline: job postings, filter decisions, customized resumes,
// discovered contacts, generated emails and document packages.
package types

import (
	"time"

	"github.com/google/uuid"
)

// JobPosting is the read model for a stored job posting.
type JobPosting struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Company         string     `json:"company"`
	Domain          string     `json:"domain,omitempty"`
	Description     string     `json:"description"`
	URL             string     `json:"url,omitempty"`
	Location        string     `json:"location,omitempty"`
	SalaryRange     string     `json:"salary_range,omitempty"`
	EmploymentType  string     `json:"employment_type,omitempty"`
	ExperienceLevel string     `json:"experience_level,omitempty"`
	Requirements    string     `json:"requirements,omitempty"`
	PostedAt        *time.Time `json:"posted_at,omitempty"`
}
