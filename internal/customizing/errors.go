package customizing

import "fmt"

// CustomizeError represents a failure to tailor the resume to a posting
type CustomizeError struct {
	Message string
	Cause   error
}

func (e *CustomizeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("resume customization failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("resume customization failed: %s", e.Message)
}

func (e *CustomizeError) Unwrap() error {
	return e.Cause
}
