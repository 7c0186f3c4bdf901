package workflow

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies stage failures for reporting and re-submission.
type ErrorKind string

// Error kinds recorded on failed stage records.
const (
	// KindDependencyMissing means a required prior artifact is absent because
	// an earlier stage was disabled, skipped or failed.
	KindDependencyMissing ErrorKind = "dependency_missing"
	// KindExternalService means a collaborator call failed.
	KindExternalService ErrorKind = "external_service"
	// KindTimeout means the job's deadline expired while the stage was
	// running or waiting on the rate governor.
	KindTimeout ErrorKind = "timeout"
	// KindUnexpected covers panics and anything else that escaped a stage.
	KindUnexpected ErrorKind = "unexpected_error"
)

// StageError is a classified failure of one pipeline stage.
type StageError struct {
	Stage   Stage
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// dependencyMissing builds a StageError for an absent prerequisite artifact.
func dependencyMissing(stage Stage, message string) *StageError {
	return &StageError{Stage: stage, Kind: KindDependencyMissing, Message: message}
}

// kindOf classifies an arbitrary error returned from a stage.
func kindOf(err error) ErrorKind {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindExternalService
}
