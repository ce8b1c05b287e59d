package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinel errors to user-facing messages.
// Using a slice (not a map) because errors.Is() requires proper error chain traversal.
//
//nolint:gochecknoglobals // Pre-built mapping
var errorInfoEntries = []errorEntry{
	{
		err: ErrProjectBusy,
		info: ErrorInfo{
			Message: "Another operation is already running on this project.",
			Action:  "Wait for it to finish. If no apkfix process is running, use 'apkfix reset <id>'.",
		},
	},
	{
		err: ErrQueueTimeout,
		info: ErrorInfo{
			Message: "Timed out waiting for a free toolchain slot.",
			Action:  "Retry later or raise scheduler.max_concurrent_invocations / scheduler.queue_wait_timeout.",
		},
	},
	{
		err: ErrToolNotFound,
		info: ErrorInfo{
			Message: "The apktool toolchain could not be found.",
			Action:  "Install apktool, set toolchain.path, or enable toolchain.simulation_enabled.",
		},
	},
	{
		err: ErrToolTimeout,
		info: ErrorInfo{
			Message: "The toolchain did not finish within its timeout and was terminated.",
			Action:  "Retry, or raise toolchain.operations.<operation>.timeout.",
		},
	},
	{
		err: ErrToolExitedNonZero,
		info: ErrorInfo{
			Message: "The toolchain reported a failure. See its output above.",
			Action:  "Fix the input (package or edited resources) and run the operation again.",
		},
	},
	{
		err: ErrIO,
		info: ErrorInfo{
			Message: "A file operation in the project directory failed.",
			Action:  "Check disk space and permissions, then retry.",
		},
	},
	{
		err: ErrInvalidTransition,
		info: ErrorInfo{
			Message: "The operation is not allowed in the project's current status.",
			Action:  "Run 'apkfix project show <id>' to see the status and the operations it allows.",
		},
	},
	{
		err: ErrProjectNotFound,
		info: ErrorInfo{
			Message: "No project exists with that id.",
			Action:  "Run 'apkfix project list' to see existing projects.",
		},
	},
	{
		err: ErrNonInteractiveMode,
		info: ErrorInfo{
			Message: "This command asks for confirmation, but stdin is not a terminal.",
			Action:  "Re-run with --force to skip the prompt.",
		},
	},
	{
		err: ErrInvalidPackage,
		info: ErrorInfo{
			Message: "Only .apk files can be uploaded.",
		},
	},
	{
		err: ErrPackageTooLarge,
		info: ErrorInfo{
			Message: "The package exceeds the upload size limit.",
			Action:  "Raise project.max_upload_bytes if this package is expected.",
		},
	},
	{
		err: ErrLockTimeout,
		info: ErrorInfo{
			Message: "Timed out waiting for the project file lock.",
			Action:  "Another apkfix process may be writing this project. Retry shortly.",
		},
	},
}

// Actionable returns a user-friendly error message along with a suggested
// action. The action is empty when there is nothing useful to suggest.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}

func getErrorInfo(err error) ErrorInfo {
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return ErrorInfo{Message: err.Error()}
}
