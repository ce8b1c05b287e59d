package domain

import (
	"time"

	"github.com/serkac1000/apk-needfix/internal/constants"
)

// OperationResult is the outcome of one toolchain run or simulation.
// The lifecycle manager treats both producers identically.
type OperationResult struct {
	Command     string    `json:"command"`
	Succeeded   bool      `json:"succeeded"`
	ExitCode    int       `json:"exit_code"`
	Stdout      string    `json:"stdout,omitempty"`
	Stderr      string    `json:"stderr,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Simulated   bool      `json:"simulated"`
	Truncated   bool      `json:"truncated,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Output returns stderr followed by stdout, the way failures are shown to users.
func (r *OperationResult) Output() string {
	if r == nil {
		return ""
	}
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	default:
		return r.Stderr + "\n" + r.Stdout
	}
}

// Record converts the result into its persisted summary.
func (r *OperationResult) Record(kind constants.OperationKind, attempts int) *OperationRecord {
	rec := &OperationRecord{
		Operation: kind,
		Attempts:  attempts,
	}
	if r == nil {
		return rec
	}
	rec.Succeeded = r.Succeeded
	rec.Simulated = r.Simulated
	rec.ExitCode = r.ExitCode
	rec.DurationMs = r.DurationMs
	rec.Truncated = r.Truncated
	rec.FinishedAt = r.CompletedAt
	return rec
}
