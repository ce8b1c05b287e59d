package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
)

// waitDelayPad is added to the kill grace to bound pipe draining after termination.
const waitDelayPad = time.Second

// Invoker runs external commands.
type Invoker struct {
	maxOutputBytes int
	killGrace      time.Duration
	now            func() time.Time
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithMaxOutputBytes caps captured stdout and stderr, each.
func WithMaxOutputBytes(n int) Option {
	return func(i *Invoker) {
		if n > 0 {
			i.maxOutputBytes = n
		}
	}
}

// WithKillGrace sets the delay between SIGTERM and SIGKILL.
func WithKillGrace(d time.Duration) Option {
	return func(i *Invoker) {
		if d >= 0 {
			i.killGrace = d
		}
	}
}

// NewInvoker creates an Invoker with default limits.
func NewInvoker(opts ...Option) *Invoker {
	inv := &Invoker{
		maxOutputBytes: constants.DefaultMaxOutputBytes,
		killGrace:      constants.DefaultKillGrace,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Run executes the invocation and waits for it to finish.
//
// A process that ran to completion yields a result and a nil error, whatever
// its exit code. A *ToolError is returned when the executable is missing, the
// timeout expired, ctx ended, or the process could not start; on timeout and
// cancellation the result still carries the output captured so far.
func (inv *Invoker) Run(ctx context.Context, in Invocation) (*domain.OperationResult, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("component", "toolchain").
		Str("command", in.String()).
		Logger()

	if in.Command == "" {
		return nil, &ToolError{Kind: KindNotFound, Command: in.Command, Err: exec.ErrNotFound}
	}

	// A missing working directory fails the same ENOENT way as a missing
	// executable once Start runs, so it is checked first.
	if err := checkDir(in.Dir); err != nil {
		logger.Debug().Err(err).Str("dir", in.Dir).Msg("tool working directory unusable")
		return nil, &ToolError{Kind: KindStartFailed, Command: in.Command, Err: err}
	}

	runCtx := ctx
	cancel := func() {}
	if in.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, in.Timeout)
	}
	defer cancel()

	stdout := newBoundedBuffer(inv.maxOutputBytes)
	stderr := newBoundedBuffer(inv.maxOutputBytes)

	cmd := exec.CommandContext(runCtx, in.Command, in.Args...)
	cmd.Dir = in.Dir
	cmd.Env = append(os.Environ(), in.Env...)
	cmd.Stdin = nil
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	tree := newProcessTree(inv.killGrace)
	tree.prepare(cmd)
	cmd.Cancel = tree.terminate
	cmd.WaitDelay = inv.killGrace + waitDelayPad

	started := inv.now()
	if err := cmd.Start(); err != nil {
		toolErr := inv.classifyStartError(ctx, runCtx, in, err)
		logger.Debug().Err(err).Str("kind", string(toolErr.Kind)).Msg("tool failed to start")
		return nil, toolErr
	}
	tree.started(cmd)
	logger.Debug().Int("pid", cmd.Process.Pid).Msg("tool started")

	waitErr := cmd.Wait()
	tree.finish()
	completed := inv.now()

	result := &domain.OperationResult{
		Command:     in.String(),
		Stdout:      stdout.String(),
		Stderr:      stderr.String(),
		Truncated:   stdout.Truncated() || stderr.Truncated(),
		DurationMs:  completed.Sub(started).Milliseconds(),
		StartedAt:   started,
		CompletedAt: completed,
		ExitCode:    -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	// Parent cancellation wins over our own deadline.
	if ctx.Err() != nil {
		logger.Warn().Dur("duration", completed.Sub(started)).Msg("tool cancelled")
		return result, &ToolError{Kind: KindCanceled, Command: in.Command, Err: ctx.Err()}
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		logger.Warn().Dur("timeout", in.Timeout).Msg("tool timed out and was terminated")
		return result, &ToolError{Kind: KindTimeout, Command: in.Command, Err: context.DeadlineExceeded}
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.Is(waitErr, exec.ErrWaitDelay):
	case errors.As(waitErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, &ToolError{Kind: KindStartFailed, Command: in.Command, Err: waitErr}
	}

	result.Succeeded = result.ExitCode == 0
	logger.Info().
		Int("exit_code", result.ExitCode).
		Int64("duration_ms", result.DurationMs).
		Bool("truncated", result.Truncated).
		Msg("tool finished")

	return result, nil
}

func (inv *Invoker) classifyStartError(ctx, runCtx context.Context, in Invocation, err error) *ToolError {
	command := in.Command
	switch {
	case ctx.Err() != nil:
		return &ToolError{Kind: KindCanceled, Command: command, Err: ctx.Err()}
	case runCtx.Err() != nil:
		return &ToolError{Kind: KindTimeout, Command: command, Err: context.DeadlineExceeded}
	case errors.Is(err, exec.ErrNotFound):
		return &ToolError{Kind: KindNotFound, Command: command, Err: err}
	case errors.Is(err, fs.ErrNotExist):
		// The directory may have gone away between the check and Start.
		if dirErr := checkDir(in.Dir); dirErr != nil {
			return &ToolError{Kind: KindStartFailed, Command: command, Err: dirErr}
		}
		return &ToolError{Kind: KindNotFound, Command: command, Err: err}
	default:
		return &ToolError{Kind: KindStartFailed, Command: command, Err: err}
	}
}

// checkDir reports why dir cannot be used as a working directory. An empty
// dir means the current one.
func checkDir(dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("working directory %s: %w", dir, syscall.ENOTDIR)
	}
	return nil
}
