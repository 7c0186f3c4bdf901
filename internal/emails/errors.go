package emails

import "fmt"

// GenerateError represents a failure to draft an outreach email
type GenerateError struct {
	Message string
	Cause   error
}

func (e *GenerateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("email generation failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("email generation failed: %s", e.Message)
}

func (e *GenerateError) Unwrap() error {
	return e.Cause
}
