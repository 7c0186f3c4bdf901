package contacts

import "fmt"

// SearchError represents a failure during contact discovery
type SearchError struct {
	Company string
	Message string
	Cause   error
}

func (e *SearchError) Error() string {
	prefix := "contact search failed"
	if e.Company != "" {
		prefix = fmt.Sprintf("contact search failed for %s", e.Company)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *SearchError) Unwrap() error {
	return e.Cause
}
