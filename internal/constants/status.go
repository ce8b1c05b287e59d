package constants

// ProjectStatus represents the state of a project in the lifecycle state machine.
// Status values use snake_case for JSON serialization compatibility.
type ProjectStatus string

// Project status constants define the valid states a project can be in.
// These follow the lifecycle:
//
//	Created → Uploaded
//	Uploaded → Decompiling
//	Decompiling → Decompiled, Failed
//	Decompiled → Decompiling, Compiling
//	Compiling → Compiled, Failed
//	Compiled → Signing
//	Signing → Signed, Failed
//	Failed → Decompiling (after a failed decompile), or back to the stable status via reset
const (
	// ProjectStatusCreated indicates the project record exists but no package is attached yet.
	ProjectStatusCreated ProjectStatus = "created"

	// ProjectStatusUploaded indicates the source package was copied into the project.
	ProjectStatusUploaded ProjectStatus = "uploaded"

	// ProjectStatusDecompiling indicates a decompile is running.
	ProjectStatusDecompiling ProjectStatus = "decompiling"

	// ProjectStatusDecompiled indicates editable sources exist in the working directory.
	ProjectStatusDecompiled ProjectStatus = "decompiled"

	// ProjectStatusCompiling indicates a build is running.
	ProjectStatusCompiling ProjectStatus = "compiling"

	// ProjectStatusCompiled indicates an unsigned package was built.
	ProjectStatusCompiled ProjectStatus = "compiled"

	// ProjectStatusSigning indicates the signer is running.
	ProjectStatusSigning ProjectStatus = "signing"

	// ProjectStatusSigned indicates a signed package is ready for download.
	ProjectStatusSigned ProjectStatus = "signed"

	// ProjectStatusFailed indicates the last operation failed.
	// The project records the failure in last_error and can be reset or retried.
	ProjectStatusFailed ProjectStatus = "failed"
)

// String returns the string representation of the ProjectStatus.
func (s ProjectStatus) String() string {
	return string(s)
}

// IsTransient reports whether an operation is in flight for a project in this status.
// Resource editors must not write into the working directory while this is true.
func (s ProjectStatus) IsTransient() bool {
	switch s {
	case ProjectStatusDecompiling, ProjectStatusCompiling, ProjectStatusSigning:
		return true
	case ProjectStatusCreated, ProjectStatusUploaded, ProjectStatusDecompiled,
		ProjectStatusCompiled, ProjectStatusSigned, ProjectStatusFailed:
		return false
	}
	return false
}

// OperationKind names a lockable, timeout-bounded unit of toolchain work.
type OperationKind string

const (
	// OperationDecompile unpacks the source package into editable sources.
	OperationDecompile OperationKind = "decompile"

	// OperationCompile rebuilds a package from the decompiled sources.
	OperationCompile OperationKind = "compile"

	// OperationSign signs the compiled package.
	OperationSign OperationKind = "sign"
)

// String returns the string representation of the OperationKind.
func (k OperationKind) String() string {
	return string(k)
}

// OperationKinds returns every operation kind in pipeline order.
func OperationKinds() []OperationKind {
	return []OperationKind{OperationDecompile, OperationCompile, OperationSign}
}

// ErrorKind classifies an operation failure for callers and for last_error.
type ErrorKind string

const (
	ErrorKindProjectBusy            ErrorKind = "ProjectBusy"
	ErrorKindQueueTimeout           ErrorKind = "QueueTimeout"
	ErrorKindToolNotFound           ErrorKind = "ToolNotFound"
	ErrorKindTimeout                ErrorKind = "Timeout"
	ErrorKindToolExitedNonZero      ErrorKind = "ToolExitedNonZero"
	ErrorKindIOError                ErrorKind = "IOError"
	ErrorKindInvalidStateTransition ErrorKind = "InvalidStateTransition"

	// ErrorKindUnknown covers failures outside the taxonomy, such as caller cancellation.
	ErrorKindUnknown ErrorKind = "Unknown"
)

// String returns the string representation of the ErrorKind.
func (k ErrorKind) String() string {
	return string(k)
}

// Retryable reports whether a failure of this kind may be retried automatically.
// Only IO and timeout failures qualify; a tool that exited non-zero is deterministic.
func (k ErrorKind) Retryable() bool {
	return k == ErrorKindIOError || k == ErrorKindTimeout
}
