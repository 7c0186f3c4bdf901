package types

import (
	"time"

	"github.com/google/uuid"
)

// GeneratedEmail is an outreach email drafted for one contact at one job's company.
type GeneratedEmail struct {
	ID                   uuid.UUID `json:"id"`
	JobID                uuid.UUID `json:"job_id"`
	Contact              Contact   `json:"contact"`
	Subject              string    `json:"subject"`
	Body                 string    `json:"body"`
	Template             string    `json:"template"`
	PersonalizationScore float64   `json:"personalization_score"`
	CreatedAt            time.Time `json:"created_at"`
}
