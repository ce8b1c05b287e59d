// Package scheduler bounds concurrent toolchain work.
//
// Two limits apply to every job. A per-project lock admits at most one
// in-flight mutation per project and rejects a second one immediately with
// ErrProjectBusy; it never queues. A global pool of slots caps how many
// toolchain processes run at once; waiters are served in FIFO order and give
// up with ErrQueueTimeout after the configured wait.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
	"github.com/serkac1000/apk-needfix/internal/metrics"
)

// Job is one unit of project work.
type Job struct {
	ProjectID string
	Kind      constants.OperationKind

	// QueueWait bounds the wait for a global slot. Zero uses the
	// scheduler default.
	QueueWait time.Duration

	// Prepare runs under the project lock before a slot is requested.
	// An error aborts the job without waiting for a slot.
	Prepare func(ctx context.Context) error

	// Run executes while holding both the project lock and a global slot. Required.
	Run func(ctx context.Context) (*domain.OperationResult, error)
}

// Stats is a point-in-time view of scheduler occupancy.
type Stats struct {
	Capacity int      `json:"capacity"`
	Running  int      `json:"running"`
	Waiting  int      `json:"waiting"`
	Busy     []string `json:"busy"`
}

// lockEntry is one slot of the per-project lock arena. Entries are created
// on first use and removed only by Forget.
type lockEntry struct {
	held bool
}

// Scheduler runs jobs under the per-project lock and the global slot pool.
type Scheduler struct {
	slots     *semaphore.Weighted
	capacity  int
	queueWait time.Duration
	recorder  metrics.Recorder

	mu      sync.Mutex
	locks   map[string]*lockEntry
	running int
	waiting int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRecorder reports queue waits and slot occupancy to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New creates a Scheduler with capacity global slots. Non-positive values
// fall back to the defaults.
func New(capacity int, queueWait time.Duration, opts ...Option) *Scheduler {
	if capacity <= 0 {
		capacity = constants.DefaultMaxConcurrentInvocations
	}
	if queueWait <= 0 {
		queueWait = constants.DefaultQueueWaitTimeout
	}
	s := &Scheduler{
		slots:     semaphore.NewWeighted(int64(capacity)),
		capacity:  capacity,
		queueWait: queueWait,
		recorder:  metrics.NoopRecorder{},
		locks:     make(map[string]*lockEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TryLock takes the project lock without waiting. The returned function
// releases it and is safe to call more than once.
func (s *Scheduler) TryLock(projectID string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.locks[projectID]
	if !ok {
		entry = &lockEntry{}
		s.locks[projectID] = entry
	}
	if entry.held {
		return nil, fmt.Errorf("%w: %s", apkerrors.ErrProjectBusy, projectID)
	}
	entry.held = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			entry.held = false
			s.mu.Unlock()
		})
	}, nil
}

// Exclusive runs fn under the project lock without taking a global slot.
// Reset and delete use it.
func (s *Scheduler) Exclusive(ctx context.Context, projectID string, fn func(ctx context.Context) error) error {
	release, err := s.TryLock(projectID)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// Submit runs job and waits for its result.
func (s *Scheduler) Submit(ctx context.Context, job Job) (*domain.OperationResult, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("component", "scheduler").
		Str("project_id", job.ProjectID).
		Str("operation", string(job.Kind)).
		Logger()

	release, err := s.TryLock(job.ProjectID)
	if err != nil {
		logger.Debug().Msg("project busy, rejecting")
		return nil, err
	}
	defer release()

	if job.Prepare != nil {
		if err := job.Prepare(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.acquire(ctx, job.Kind, job.QueueWait); err != nil {
		logger.Warn().Err(err).Msg("no invocation slot")
		return nil, err
	}
	defer s.releaseSlot()

	return job.Run(ctx)
}

func (s *Scheduler) acquire(ctx context.Context, kind constants.OperationKind, wait time.Duration) error {
	if wait <= 0 {
		wait = s.queueWait
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	s.mu.Lock()
	s.waiting++
	s.mu.Unlock()

	start := time.Now()
	err := s.slots.Acquire(waitCtx, 1)
	waited := time.Since(start)

	s.mu.Lock()
	s.waiting--
	if err == nil {
		s.running++
	}
	running := s.running
	s.mu.Unlock()

	switch {
	case err == nil:
		s.recorder.QueueWaited(kind, waited, metrics.QueueAcquired)
		s.recorder.SlotsInUse(running)
		return nil
	case ctx.Err() != nil:
		s.recorder.QueueWaited(kind, waited, metrics.QueueCanceled)
		return fmt.Errorf("waiting for invocation slot: %w", ctx.Err())
	case errors.Is(err, context.DeadlineExceeded):
		s.recorder.QueueWaited(kind, waited, metrics.QueueTimedOut)
		return fmt.Errorf("%w: waited %s", apkerrors.ErrQueueTimeout, wait)
	default:
		return err
	}
}

func (s *Scheduler) releaseSlot() {
	s.slots.Release(1)
	s.mu.Lock()
	s.running--
	running := s.running
	s.mu.Unlock()
	s.recorder.SlotsInUse(running)
}

// Forget drops the arena entry for a deleted project.
func (s *Scheduler) Forget(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.locks[projectID]; ok && !entry.held {
		delete(s.locks, projectID)
	}
}

// Stats returns current occupancy. Busy lists locked project ids in order.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	busy := make([]string, 0, len(s.locks))
	for id, entry := range s.locks {
		if entry.held {
			busy = append(busy, id)
		}
	}
	sort.Strings(busy)
	return Stats{
		Capacity: s.capacity,
		Running:  s.running,
		Waiting:  s.waiting,
		Busy:     busy,
	}
}
