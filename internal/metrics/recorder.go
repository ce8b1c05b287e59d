// Package metrics collects operation, queue and toolchain metrics.
package metrics

import (
	"time"

	"github.com/serkac1000/apk-needfix/internal/constants"
)

// Queue wait outcomes.
const (
	QueueAcquired = "acquired"
	QueueTimedOut = "timeout"
	QueueCanceled = "canceled"
)

// Recorder receives metric events from the scheduler and lifecycle manager.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// QueueWaited is called when a job stops waiting for a global slot.
	QueueWaited(kind constants.OperationKind, wait time.Duration, outcome string)

	// SlotsInUse reports the number of occupied global slots.
	SlotsInUse(n int)

	// ToolRan is called after every toolchain or simulation attempt.
	ToolRan(kind constants.OperationKind, simulated bool, exitCode int)

	// OperationCompleted is called once per lifecycle operation, after all
	// retries. outcome is "success" or an error kind.
	OperationCompleted(kind constants.OperationKind, duration time.Duration, outcome string, simulated bool)
}

// NoopRecorder discards every event.
type NoopRecorder struct{}

var _ Recorder = NoopRecorder{}

// QueueWaited implements Recorder.
func (NoopRecorder) QueueWaited(constants.OperationKind, time.Duration, string) {}

// SlotsInUse implements Recorder.
func (NoopRecorder) SlotsInUse(int) {}

// ToolRan implements Recorder.
func (NoopRecorder) ToolRan(constants.OperationKind, bool, int) {}

// OperationCompleted implements Recorder.
func (NoopRecorder) OperationCompleted(constants.OperationKind, time.Duration, string, bool) {}
