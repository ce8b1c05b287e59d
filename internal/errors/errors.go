// Package errors provides centralized error handling for apkfix.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Operation failure taxonomy. Every operation failure surfaced to a caller
// matches exactly one of these with errors.Is().
var (
	// ErrProjectBusy indicates another operation already holds the project.
	ErrProjectBusy = errors.New("project busy")

	// ErrQueueTimeout indicates no global invocation slot became free in time.
	ErrQueueTimeout = errors.New("queue wait timeout")

	// ErrToolNotFound indicates the toolchain executable could not be located.
	ErrToolNotFound = errors.New("toolchain not found")

	// ErrToolTimeout indicates the toolchain exceeded its execution timeout
	// and was terminated along with its children.
	ErrToolTimeout = errors.New("toolchain timed out")

	// ErrToolExitedNonZero indicates the toolchain ran and reported failure.
	ErrToolExitedNonZero = errors.New("toolchain exited non-zero")

	// ErrIO indicates a working-directory or artifact file operation failed.
	ErrIO = errors.New("io error")

	// ErrInvalidTransition indicates an operation was requested from a
	// status that does not permit it.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Supporting sentinels.
var (
	// ErrProjectNotFound indicates no project exists with the requested id.
	ErrProjectNotFound = errors.New("project not found")

	// ErrProjectExists indicates a project with the same id is already stored.
	ErrProjectExists = errors.New("project already exists")

	// ErrEmptyValue indicates a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrInvalidPackage indicates an upload is not an acceptable package.
	ErrInvalidPackage = errors.New("invalid package")

	// ErrPackageTooLarge indicates an upload exceeds the configured limit.
	ErrPackageTooLarge = errors.New("package too large")

	// ErrLockTimeout indicates that acquiring a file lock timed out.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrToolStart indicates the toolchain process could not be started for a
	// reason other than a missing executable.
	ErrToolStart = errors.New("toolchain failed to start")

	// ErrConfigNil indicates that a nil configuration was passed.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalid indicates a configuration value is out of range or malformed.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrUnknownStoreBackend indicates the configured store backend is not supported.
	ErrUnknownStoreBackend = errors.New("unknown store backend")

	// ErrInvalidOutputFormat indicates that an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrUnknownOperation indicates an operation name was not recognized.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrNonInteractiveMode indicates a confirmation was needed but stdin is
	// not a terminal.
	ErrNonInteractiveMode = errors.New("use --force in non-interactive mode")

	// ErrOperationFailed is returned by the CLI after it has already printed a failure.
	ErrOperationFailed = errors.New("operation failed")
)

// ExitCode2Error wraps an error to indicate exit code 2 should be used.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps an error to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

// Error implements the error interface.
func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error checks if an error should result in exit code 2.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}
