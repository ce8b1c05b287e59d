package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
	"github.com/serkac1000/apk-needfix/internal/logging"
	"github.com/serkac1000/apk-needfix/internal/scheduler"
	"github.com/serkac1000/apk-needfix/internal/toolchain"
)

// outcomeSuccess labels successful operations in metrics.
const outcomeSuccess = "success"

// Decompile unpacks the source package into the working directory.
// It is allowed from UPLOADED, and as a retry from DECOMPILED or from a
// failed decompile. Output from any previous attempt is removed first.
func (m *Manager) Decompile(ctx context.Context, id string) (*Outcome, error) {
	return m.run(ctx, id, constants.OperationDecompile)
}

// Compile builds the decompiled sources into an unsigned package.
// It is allowed only from DECOMPILED with the decompiled tree present.
func (m *Manager) Compile(ctx context.Context, id string) (*Outcome, error) {
	return m.run(ctx, id, constants.OperationCompile)
}

// Sign copies the compiled package to the signed location and signs the
// copy. It is allowed only from COMPILED with the compiled package present.
func (m *Manager) Sign(ctx context.Context, id string) (*Outcome, error) {
	return m.run(ctx, id, constants.OperationSign)
}

// Run dispatches an operation by kind.
func (m *Manager) Run(ctx context.Context, kind constants.OperationKind, id string) (*Outcome, error) {
	switch kind {
	case constants.OperationDecompile, constants.OperationCompile, constants.OperationSign:
		return m.run(ctx, id, kind)
	}
	return nil, fmt.Errorf("%w: %q", apkerrors.ErrUnknownOperation, kind)
}

// run executes kind under the project lock and a global slot.
//
// Rejections (busy, invalid transition, queue timeout, cancellation while
// queued) happen before anything is written and leave the project as it
// was. Once the slot is held, the transient status is persisted and every
// exit path persists a final status.
func (m *Manager) run(ctx context.Context, id string, kind constants.OperationKind) (*Outcome, error) {
	var state runState
	_, err := m.scheduler.Submit(ctx, m.job(id, kind, &state))
	return m.settle(ctx, id, kind, &state, err)
}

// runState carries what a job learned back to its caller.
type runState struct {
	project *domain.Project
	outcome *Outcome
	opErr   error
}

func (m *Manager) job(id string, kind constants.OperationKind, state *runState) scheduler.Job {
	return scheduler.Job{
		ProjectID: id,
		Kind:      kind,
		QueueWait: m.cfg.Toolchain.Operations.For(kind).QueueWaitTimeout,
		Prepare: func(ctx context.Context) error {
			p, err := m.store.Load(ctx, id)
			if err != nil {
				return err
			}
			if err := checkStart(kind, p); err != nil {
				return err
			}
			state.project = p
			return nil
		},
		Run: func(ctx context.Context) (*domain.OperationResult, error) {
			state.outcome, state.opErr = m.execute(ctx, kind, state.project)
			if state.outcome == nil {
				return nil, state.opErr
			}
			return state.outcome.Result, state.opErr
		},
	}
}

// settle turns a finished job into the caller's result. submitErr is what the
// scheduler returned.
func (m *Manager) settle(ctx context.Context, id string, kind constants.OperationKind, state *runState, submitErr error) (*Outcome, error) {
	if state.outcome != nil {
		return state.outcome, state.opErr
	}
	if submitErr == nil {
		submitErr = state.opErr
	}
	return nil, m.reject(ctx, id, kind, submitErr)
}

// reject converts a pre-execution failure into the error returned to callers.
func (m *Manager) reject(ctx context.Context, id string, kind constants.OperationKind, err error) error {
	if err == nil {
		return nil
	}
	log := m.logger(ctx, id)
	log.Info().Str("operation", string(kind)).Err(err).Msg("operation rejected")

	if errors.Is(err, apkerrors.ErrProjectNotFound) || errors.Is(err, apkerrors.ErrEmptyValue) {
		return err
	}
	m.recorder.OperationCompleted(kind, 0, string(domain.ErrorKindOf(err)), false)
	return domain.NewOperationError(kind, err, "")
}

// checkStart checks that kind may start from p's current status. It runs under
// the project lock, before a slot is requested.
func checkStart(kind constants.OperationKind, p *domain.Project) error {
	if p.Status.IsTransient() {
		return fmt.Errorf("%w: %s is %s; run reset if no operation is running",
			apkerrors.ErrProjectBusy, p.ID, p.Status)
	}

	switch kind {
	case constants.OperationDecompile:
		switch {
		case p.Status == constants.ProjectStatusUploaded,
			p.Status == constants.ProjectStatusDecompiled,
			p.Status == constants.ProjectStatusFailed && failedOperation(p) == constants.OperationDecompile:
			if p.SourceArtifactPath == "" {
				return fmt.Errorf("%w: project has no source package", apkerrors.ErrInvalidTransition)
			}
			return nil
		}

	case constants.OperationCompile:
		if p.Status == constants.ProjectStatusDecompiled {
			if !dirExists(p.DecompiledDir()) {
				return fmt.Errorf("%w: decompiled sources are missing from %s",
					apkerrors.ErrInvalidTransition, p.DecompiledDir())
			}
			return nil
		}

	case constants.OperationSign:
		if p.Status == constants.ProjectStatusCompiled {
			if !fileExists(p.CompiledArtifactPath()) {
				return fmt.Errorf("%w: compiled package is missing at %s",
					apkerrors.ErrInvalidTransition, p.CompiledArtifactPath())
			}
			return nil
		}

	default:
		return fmt.Errorf("%w: %q", apkerrors.ErrUnknownOperation, kind)
	}

	return fmt.Errorf("%w: cannot %s a project that is %s",
		apkerrors.ErrInvalidTransition, kind, p.Status)
}

// execute runs with the project lock and a global slot held.
func (m *Manager) execute(ctx context.Context, kind constants.OperationKind, p *domain.Project) (*Outcome, error) {
	log := m.logger(ctx, p.ID).With().Str("operation", string(kind)).Logger()
	started := m.clock.Now()

	stableFrom := p.Status
	if stableFrom == constants.ProjectStatusFailed {
		stableFrom = p.FailedFrom
		if stableFrom == "" {
			stableFrom = predecessorStatus(kind)
		}
	}

	if kind == constants.OperationDecompile && p.WorkingDirectory == "" {
		p.WorkingDirectory = filepath.Join(p.Dir(), constants.WorkDir)
	}
	if err := Transition(ctx, p, transientStatus(kind), string(kind)+" started", started); err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, p); err != nil {
		return nil, err
	}
	log.Info().Msg("operation started")

	// The final save must happen even if ctx was cancelled mid-run.
	persistCtx := context.WithoutCancel(ctx)

	result, attempts, err := m.attempt(ctx, kind, p)

	finished := m.clock.Now()
	p.LastResult = result.Record(kind, attempts)

	var opErr *domain.OperationError
	if err == nil {
		if tErr := Transition(persistCtx, p, completedStatus(kind), string(kind)+" succeeded", finished); tErr != nil {
			return nil, tErr
		}
		p.LastError = nil
		p.FailedFrom = ""
		p.Simulated = result.Simulated
	} else {
		opErr = domain.NewOperationError(kind, err, logging.FilterSensitiveValue(result.Output()))
		if tErr := Transition(persistCtx, p, constants.ProjectStatusFailed, opErr.Error(), finished); tErr != nil {
			return nil, tErr
		}
		p.LastError = opErr.ProjectError()
		p.FailedFrom = stableFrom
	}

	if saveErr := m.store.Save(persistCtx, p); saveErr != nil {
		log.Error().Err(saveErr).Msg("failed to persist operation outcome")
		return &Outcome{Project: p.Clone(), Result: result}, domain.NewOperationError(kind, saveErr, logging.FilterSensitiveValue(result.Output()))
	}

	label := outcomeSuccess
	if opErr != nil {
		label = string(opErr.Kind)
	}
	m.recorder.OperationCompleted(kind, finished.Sub(started), label, result != nil && result.Simulated)

	event := log.Info()
	if opErr != nil {
		event = log.Warn().Str("error_kind", string(opErr.Kind))
	}
	event.
		Str("status", string(p.Status)).
		Int("attempts", attempts).
		Bool("simulated", result != nil && result.Simulated).
		Dur("duration", finished.Sub(started)).
		Msg("operation finished")

	outcome := &Outcome{Project: p.Clone(), Result: result}
	if opErr != nil {
		return outcome, opErr
	}
	return outcome, nil
}

// attempt runs kind up to retry.max_attempts times. Only IO and timeout
// failures are retried, and each attempt starts from a clean output location.
func (m *Manager) attempt(ctx context.Context, kind constants.OperationKind, p *domain.Project) (*domain.OperationResult, int, error) {
	maxAttempts := m.cfg.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		result *domain.OperationResult
		err    error
	)
	for attempt := 1; ; attempt++ {
		result, err = m.attemptOnce(ctx, kind, p)
		if err == nil {
			return result, attempt, nil
		}
		if attempt >= maxAttempts || !domain.ErrorKindOf(err).Retryable() || ctx.Err() != nil {
			return result, attempt, err
		}

		log := m.logger(ctx, p.ID)
		log.Warn().
			Str("operation", string(kind)).
			Int("attempt", attempt).
			Dur("backoff", m.cfg.Retry.Backoff).
			Err(err).
			Msg("retrying operation")

		if sleepErr := m.sleep(ctx, m.cfg.Retry.Backoff); sleepErr != nil {
			return result, attempt, err
		}
	}
}

func (m *Manager) attemptOnce(ctx context.Context, kind constants.OperationKind, p *domain.Project) (*domain.OperationResult, error) {
	if err := prepareOutput(kind, p); err != nil {
		return nil, err
	}

	result, err := m.invoke(ctx, kind, p)
	if err != nil {
		return result, err
	}
	if !result.Succeeded {
		return result, fmt.Errorf("%w: exit code %d", apkerrors.ErrToolExitedNonZero, result.ExitCode)
	}
	if missing := missingOutput(kind, p); missing != "" {
		return result, apkerrors.IOf(fs.ErrNotExist, "%s reported success but %s is missing", kind, missing)
	}
	return result, nil
}

// invoke runs the real toolchain when it is available and falls back to
// simulation when it is missing and simulation is enabled.
func (m *Manager) invoke(ctx context.Context, kind constants.OperationKind, p *domain.Project) (*domain.OperationResult, error) {
	cmd := m.capability.Command(kind)
	if !cmd.Available {
		name := cmd.Name
		if name == "" {
			name = string(kind) + " toolchain"
		}
		return m.fallback(ctx, kind, p, fmt.Errorf("%w: %s", apkerrors.ErrToolNotFound, name))
	}

	in := toolchain.NewInvocation(cmd, m.cfg.Toolchain.Operations.For(kind), m.vars(kind, p), p.WorkingDirectory)
	result, err := m.toolchain.Run(ctx, in)
	if errors.Is(err, apkerrors.ErrToolNotFound) {
		return m.fallback(ctx, kind, p, err)
	}
	if result != nil {
		m.recorder.ToolRan(kind, false, result.ExitCode)
	}
	return result, err
}

func (m *Manager) fallback(ctx context.Context, kind constants.OperationKind, p *domain.Project, cause error) (*domain.OperationResult, error) {
	if !m.cfg.Toolchain.SimulationEnabled || m.simulator == nil {
		return nil, cause
	}
	log := m.logger(ctx, p.ID)
	log.Info().
		Str("operation", string(kind)).
		Str("reason", cause.Error()).
		Msg("toolchain unavailable, simulating")

	result := m.simulator.Simulate(ctx, kind, p)
	m.recorder.ToolRan(kind, true, result.ExitCode)
	return result, nil
}

func (m *Manager) vars(kind constants.OperationKind, p *domain.Project) toolchain.Vars {
	v := toolchain.Vars{
		Source:       p.SourceArtifactPath,
		Dir:          p.DecompiledDir(),
		Keystore:     m.cfg.Signing.Keystore,
		KeystorePass: m.cfg.Signing.KeystorePass,
		KeyAlias:     m.cfg.Signing.KeyAlias,
	}
	switch kind {
	case constants.OperationCompile:
		v.Artifact = p.CompiledArtifactPath()
	case constants.OperationSign:
		v.Artifact = p.SignedArtifactPath()
	case constants.OperationDecompile:
	}
	return v
}

// failedOperation returns the operation recorded on a failed project.
func failedOperation(p *domain.Project) constants.OperationKind {
	if p.LastError == nil {
		return ""
	}
	return p.LastError.Operation
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
