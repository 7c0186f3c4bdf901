package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ErrBatchNotFound indicates the requested batch result does not exist.
type ErrBatchNotFound struct {
	RequestID string
}

func (e *ErrBatchNotFound) Error() string {
	return fmt.Sprintf("batch not found: %s", e.RequestID)
}

// ErrJobNotFound indicates the requested job posting does not exist.
type ErrJobNotFound struct {
	JobID uuid.UUID
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrBatchNotFound, *ErrJobNotFound:
		return http.StatusNotFound
	}
	// Orchestrator rejects malformed batch requests before running anything.
	if strings.Contains(err.Error(), "invalid batch request") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
