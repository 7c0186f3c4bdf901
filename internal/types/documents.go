package types

import "github.com/google/uuid"

// Document formats supported by the document generator.
const (
	FormatHTML     = "html"
	FormatPDF      = "pdf"
	FormatMarkdown = "markdown"
)

// Document is one rendered application document.
type Document struct {
	Format string `json:"format"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
}

// DocumentPackage groups the documents rendered for one job application.
type DocumentPackage struct {
	JobID     uuid.UUID  `json:"job_id"`
	Documents []Document `json:"documents"`
	TotalSize int64      `json:"total_size"`
}
