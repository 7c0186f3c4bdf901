package documents

import "fmt"

// RenderError represents a failure to render or convert a document
type RenderError struct {
	Message   string
	LogOutput string
	Cause     error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("document rendering failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("document rendering failed: %s", e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
