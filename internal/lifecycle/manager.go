// Package lifecycle owns the project state machine. It is the only writer of
// project status: every operation loads the project, checks the transition,
// runs the toolchain (or its simulation) under the scheduler, and persists
// the new status together with the result that caused it in a single save.
//
// Import rules:
//   - CAN import: config, constants, domain, errors, store, scheduler,
//     toolchain, metrics, clock, ctxutil, std lib
//   - MUST NOT import: internal/cli
package lifecycle

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/serkac1000/apk-needfix/internal/clock"
	"github.com/serkac1000/apk-needfix/internal/config"
	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/ctxutil"
	"github.com/serkac1000/apk-needfix/internal/domain"
	"github.com/serkac1000/apk-needfix/internal/metrics"
	"github.com/serkac1000/apk-needfix/internal/scheduler"
	"github.com/serkac1000/apk-needfix/internal/store"
	"github.com/serkac1000/apk-needfix/internal/toolchain"
)

// Toolchain runs one external invocation. *toolchain.Invoker implements it.
type Toolchain interface {
	Run(ctx context.Context, in toolchain.Invocation) (*domain.OperationResult, error)
}

// Simulator produces a result without the real toolchain.
// *simulate.Engine implements it.
type Simulator interface {
	Simulate(ctx context.Context, kind constants.OperationKind, project *domain.Project) *domain.OperationResult
}

// Outcome is what an operation returns: the project as persisted after the
// operation, and the result of the last tool run when one happened.
type Outcome struct {
	Project *domain.Project         `json:"project"`
	Result  *domain.OperationResult `json:"result,omitempty"`
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Config      *config.Config
	Store       store.Store
	Scheduler   *scheduler.Scheduler
	Toolchain   Toolchain
	Simulator   Simulator
	Capability  *config.Capability
	ProjectsDir string

	// Optional.
	Clock    clock.Clock
	Recorder metrics.Recorder
}

// Manager drives projects through the lifecycle.
type Manager struct {
	cfg         *config.Config
	store       store.Store
	scheduler   *scheduler.Scheduler
	toolchain   Toolchain
	simulator   Simulator
	capability  *config.Capability
	projectsDir string
	clock       clock.Clock
	recorder    metrics.Recorder

	// sleep waits between retry attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewManager creates a Manager. Clock and Recorder default to the real clock
// and a no-op recorder.
func NewManager(deps Deps) *Manager {
	m := &Manager{
		cfg:         deps.Config,
		store:       deps.Store,
		scheduler:   deps.Scheduler,
		toolchain:   deps.Toolchain,
		simulator:   deps.Simulator,
		capability:  deps.Capability,
		projectsDir: deps.ProjectsDir,
		clock:       deps.Clock,
		recorder:    deps.Recorder,
		sleep:       ctxutil.Sleep,
	}
	if m.cfg == nil {
		m.cfg = config.DefaultConfig()
	}
	if m.clock == nil {
		m.clock = clock.RealClock{}
	}
	if m.recorder == nil {
		m.recorder = metrics.NoopRecorder{}
	}
	return m
}

// Capability returns the toolchain capability the manager was built with.
func (m *Manager) Capability() *config.Capability {
	return m.capability
}

// Scheduler returns the scheduler, for occupancy reporting.
func (m *Manager) Scheduler() *scheduler.Scheduler {
	return m.scheduler
}

// Status returns the current project record. Resource editors call it and
// must not write into the working directory while the status is transient.
func (m *Manager) Status(ctx context.Context, id string) (*domain.Project, error) {
	return m.store.Load(ctx, id)
}

// List returns every project, newest first.
func (m *Manager) List(ctx context.Context) ([]*domain.Project, error) {
	return m.store.List(ctx)
}

func (m *Manager) logger(ctx context.Context, id string) zerolog.Logger {
	return zerolog.Ctx(ctx).With().
		Str("component", "lifecycle").
		Str("project_id", id).
		Logger()
}
