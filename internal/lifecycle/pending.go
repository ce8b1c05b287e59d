package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/serkac1000/apk-needfix/internal/constants"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
	"github.com/serkac1000/apk-needfix/internal/scheduler"
)

// Pending is an operation handed to the scheduler by Start.
type Pending struct {
	m      *Manager
	ctx    context.Context //nolint:containedctx // settle logs with the caller's logger
	id     string
	kind   constants.OperationKind
	future *scheduler.Future
	state  runState
	done   chan struct{}

	once    sync.Once
	outcome *Outcome
	err     error
}

// Start hands kind to the scheduler and returns without waiting for a slot.
// The operation follows the same rules as Run; an unknown kind resolves
// immediately with ErrUnknownOperation.
func (m *Manager) Start(ctx context.Context, kind constants.OperationKind, id string) *Pending {
	p := &Pending{m: m, ctx: ctx, id: id, kind: kind}

	switch kind {
	case constants.OperationDecompile, constants.OperationCompile, constants.OperationSign:
		p.future = m.scheduler.SubmitAsync(ctx, m.job(id, kind, &p.state))
	default:
		p.done = make(chan struct{})
		close(p.done)
		p.once.Do(func() {
			p.err = fmt.Errorf("%w: %q", apkerrors.ErrUnknownOperation, kind)
		})
	}
	return p
}

// Done is closed when the operation has finished.
func (p *Pending) Done() <-chan struct{} {
	if p.future != nil {
		return p.future.Done()
	}
	return p.done
}

// Wait blocks until the operation finishes or ctx ends. Ending ctx stops the
// wait, not the operation.
func (p *Pending) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-p.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.once.Do(func() {
		_, submitErr := p.future.Wait(context.WithoutCancel(ctx))
		p.outcome, p.err = p.m.settle(p.ctx, p.id, p.kind, &p.state, submitErr)
	})
	return p.outcome, p.err
}
