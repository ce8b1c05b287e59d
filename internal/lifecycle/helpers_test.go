package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/serkac1000/apk-needfix/internal/clock"
	"github.com/serkac1000/apk-needfix/internal/config"
	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	"github.com/serkac1000/apk-needfix/internal/scheduler"
	"github.com/serkac1000/apk-needfix/internal/simulate"
	"github.com/serkac1000/apk-needfix/internal/store"
	"github.com/serkac1000/apk-needfix/internal/testutil"
	"github.com/serkac1000/apk-needfix/internal/toolchain"
)

// fakeToolchain behaves like apktool for the default argument templates:
// "d" creates the decompiled tree, "b" writes the package, "sign" leaves the
// copied package in place.
type fakeToolchain struct {
	mu    sync.Mutex
	calls []toolchain.Invocation

	// run replaces the default behavior when set. Set it before starting
	// operations.
	run func(ctx context.Context, in toolchain.Invocation) (*domain.OperationResult, error)
}

func (f *fakeToolchain) Run(ctx context.Context, in toolchain.Invocation) (*domain.OperationResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()

	if f.run != nil {
		return f.run(ctx, in)
	}
	return produce(in)
}

func (f *fakeToolchain) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func produce(in toolchain.Invocation) (*domain.OperationResult, error) {
	result := &domain.OperationResult{Command: in.String(), Succeeded: true}
	switch in.Args[0] {
	case "d":
		dir := in.Args[3]
		if err := os.MkdirAll(filepath.Join(dir, "res", "values"), 0o750); err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(dir, "apktool.yml"), []byte("version: 2.9.3\n"), 0o600); err != nil {
			return nil, err
		}
	case "b":
		if err := os.WriteFile(in.Args[3], []byte("PK compiled"), 0o600); err != nil {
			return nil, err
		}
	}
	result.Stdout = "ok\n"
	return result, nil
}

type testEnv struct {
	m     *Manager
	store store.Store
	cfg   *config.Config
	tc    *fakeToolchain
	sched *scheduler.Scheduler
	root  string
}

type envOption func(*Deps)

func withoutToolchain() envOption {
	return func(d *Deps) { d.Capability = nil }
}

func withScheduler(s *scheduler.Scheduler) envOption {
	return func(d *Deps) { d.Scheduler = s }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	root := t.TempDir()
	projects := filepath.Join(root, constants.ProjectsDir)
	st, err := store.NewFileStore(projects)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Retry.Backoff = time.Millisecond
	tc := &fakeToolchain{}

	deps := Deps{
		Config:    cfg,
		Store:     st,
		Scheduler: scheduler.New(2, time.Second),
		Toolchain: tc,
		Simulator: simulate.New(clock.RealClock{}),
		Capability: &config.Capability{
			SimulationEnabled: cfg.Toolchain.SimulationEnabled,
			Toolchain:         config.ToolCommand{Name: "apktool", Path: "apktool", Available: true},
		},
		ProjectsDir: projects,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	m := NewManager(deps)
	m.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	return &testEnv{m: m, store: st, cfg: cfg, tc: tc, sched: deps.Scheduler, root: root}
}

func testContext() context.Context {
	return zerolog.Nop().WithContext(context.Background())
}

// writePackage writes a small upload candidate and returns its path.
func (e *testEnv) writePackage(t *testing.T, name string) string {
	t.Helper()
	return testutil.WritePackage(t, e.root, name)
}

// uploaded returns the id of a new project in UPLOADED.
func (e *testEnv) uploaded(t *testing.T) string {
	t.Helper()
	outcome, err := e.m.Create(testContext(), CreateRequest{SourcePath: e.writePackage(t, "app.apk")})
	require.NoError(t, err)
	require.Equal(t, constants.ProjectStatusUploaded, outcome.Project.Status)
	return outcome.Project.ID
}

// decompiled returns the id of a new project in DECOMPILED.
func (e *testEnv) decompiled(t *testing.T) string {
	t.Helper()
	id := e.uploaded(t)
	_, err := e.m.Decompile(testContext(), id)
	require.NoError(t, err)
	return id
}

func (e *testEnv) load(t *testing.T, id string) *domain.Project {
	t.Helper()
	p, err := e.store.Load(testContext(), id)
	require.NoError(t, err)
	return p
}

// forceStatus persists p with a status written directly, as a crashed
// process would leave it.
func (e *testEnv) forceStatus(t *testing.T, id string, to constants.ProjectStatus) {
	t.Helper()
	p := e.load(t, id)
	p.Transitions = append(p.Transitions, domain.Transition{FromStatus: p.Status, ToStatus: to, Timestamp: time.Now().UTC()})
	p.Status = to
	require.NoError(t, e.store.Save(testContext(), p))
}
