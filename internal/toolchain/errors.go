package toolchain

import (
	"context"
	"fmt"

	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

// ToolErrorKind classifies why a tool did not produce an exit code.
type ToolErrorKind string

const (
	// KindNotFound means the executable does not exist or is not on PATH.
	KindNotFound ToolErrorKind = "NotFound"

	// KindTimeout means the invocation exceeded its timeout and was terminated.
	KindTimeout ToolErrorKind = "Timeout"

	// KindCanceled means the caller's context ended and the tool was terminated.
	KindCanceled ToolErrorKind = "Canceled"

	// KindStartFailed covers every other failure to launch the process.
	KindStartFailed ToolErrorKind = "StartFailed"
)

// ToolError is returned when a tool could not run to completion.
type ToolError struct {
	Kind    ToolErrorKind
	Command string
	Err     error
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Command, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Command, e.Kind, e.Err)
}

// Unwrap exposes both the matching sentinel and the underlying cause, so
// errors.Is works against apkerrors.ErrToolTimeout as well as
// context.DeadlineExceeded.
func (e *ToolError) Unwrap() []error {
	errs := make([]error, 0, 2)
	switch e.Kind {
	case KindNotFound:
		errs = append(errs, apkerrors.ErrToolNotFound)
	case KindTimeout:
		errs = append(errs, apkerrors.ErrToolTimeout)
	case KindCanceled:
		errs = append(errs, context.Canceled)
	case KindStartFailed:
		errs = append(errs, apkerrors.ErrToolStart)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
