package filtering

import "fmt"

// DecideError represents a failure to produce a filter decision
type DecideError struct {
	Message string
	Cause   error
}

func (e *DecideError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("filter decision failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("filter decision failed: %s", e.Message)
}

func (e *DecideError) Unwrap() error {
	return e.Cause
}
