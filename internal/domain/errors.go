package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/serkac1000/apk-needfix/internal/constants"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

// OperationError is returned to callers when an operation fails. It carries
// the classified kind, a message and the captured tool output for display,
// and unwraps to the matching sentinel in internal/errors.
type OperationError struct {
	Kind      constants.ErrorKind
	Operation constants.OperationKind
	Message   string
	Output    string
	Err       error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Operation, e.Kind, e.Message)
}

// Unwrap returns the underlying error chain.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// ProjectError converts the failure into the record kept on the project.
func (e *OperationError) ProjectError() *ProjectError {
	return &ProjectError{
		Kind:      e.Kind,
		Message:   e.Message,
		Output:    e.Output,
		Operation: e.Operation,
		Retryable: e.Kind.Retryable(),
	}
}

// NewOperationError classifies err and builds an OperationError around it.
func NewOperationError(op constants.OperationKind, err error, output string) *OperationError {
	return &OperationError{
		Kind:      ErrorKindOf(err),
		Operation: op,
		Message:   err.Error(),
		Output:    output,
		Err:       err,
	}
}

// ErrorKindOf maps an error onto the failure taxonomy.
func ErrorKindOf(err error) constants.ErrorKind {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}

	switch {
	case err == nil:
		return ""
	case errors.Is(err, apkerrors.ErrProjectBusy):
		return constants.ErrorKindProjectBusy
	case errors.Is(err, apkerrors.ErrQueueTimeout):
		return constants.ErrorKindQueueTimeout
	case errors.Is(err, apkerrors.ErrToolNotFound):
		return constants.ErrorKindToolNotFound
	case errors.Is(err, apkerrors.ErrToolTimeout):
		return constants.ErrorKindTimeout
	case errors.Is(err, apkerrors.ErrToolExitedNonZero):
		return constants.ErrorKindToolExitedNonZero
	case errors.Is(err, apkerrors.ErrIO), errors.Is(err, apkerrors.ErrLockTimeout), errors.Is(err, apkerrors.ErrToolStart):
		return constants.ErrorKindIOError
	case errors.Is(err, apkerrors.ErrInvalidTransition):
		return constants.ErrorKindInvalidStateTransition
	case errors.Is(err, context.DeadlineExceeded):
		return constants.ErrorKindTimeout
	default:
		return constants.ErrorKindUnknown
	}
}
