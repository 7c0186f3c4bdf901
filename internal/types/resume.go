package types

import (
	"time"

	"github.com/google/uuid"
)

// ResumeSection is one tailored section of a customized resume.
type ResumeSection struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// CustomizedResume is a resume tailored to one job posting.
type CustomizedResume struct {
	ID                uuid.UUID       `json:"id"`
	JobID             uuid.UUID       `json:"job_id"`
	Summary           string          `json:"summary"`
	HighlightedSkills []string        `json:"highlighted_skills,omitempty"`
	Sections          []ResumeSection `json:"sections,omitempty"`
	Confidence        float64         `json:"confidence"`
	CreatedAt         time.Time       `json:"created_at"`
}
