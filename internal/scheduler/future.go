package scheduler

import (
	"context"

	"github.com/serkac1000/apk-needfix/internal/domain"
)

// Future is the pending result of SubmitAsync.
type Future struct {
	done   chan struct{}
	result *domain.OperationResult
	err    error
}

// SubmitAsync starts job in a new goroutine and returns immediately.
// The job observes ctx exactly as Submit would.
func (s *Scheduler) SubmitAsync(ctx context.Context, job Job) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.result, f.err = s.Submit(ctx, job)
	}()
	return f
}

// Done is closed when the job has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the job finishes or ctx ends. Ending ctx stops the wait,
// not the job.
func (f *Future) Wait(ctx context.Context) (*domain.OperationResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
