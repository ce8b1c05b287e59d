package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/serkac1000/apk-needfix/internal/clock"
	"github.com/serkac1000/apk-needfix/internal/config"
	"github.com/serkac1000/apk-needfix/internal/lifecycle"
	"github.com/serkac1000/apk-needfix/internal/metrics"
	"github.com/serkac1000/apk-needfix/internal/scheduler"
	"github.com/serkac1000/apk-needfix/internal/simulate"
	"github.com/serkac1000/apk-needfix/internal/store"
	"github.com/serkac1000/apk-needfix/internal/toolchain"
)

// app is everything a command needs, built once per invocation.
type app struct {
	cfg     *config.Config
	home    string
	store   store.Store
	manager *lifecycle.Manager
	metrics *metrics.Prometheus
}

// newApp loads configuration, detects the toolchain once, opens the store
// and assembles the lifecycle manager. When flags.MetricsAddr is set the
// metrics endpoint is served until ctx ends.
func newApp(ctx context.Context, flags *GlobalFlags) (*app, error) {
	logger := zerolog.Ctx(ctx)

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	home, err := config.ResolveHome(cfg)
	if err != nil {
		return nil, err
	}
	if err := config.EnsureHome(home); err != nil {
		return nil, err
	}

	capability, err := config.DetectToolchain(ctx, &cfg.Toolchain)
	if err != nil {
		return nil, fmt.Errorf("failed to detect toolchain: %w", err)
	}
	if !capability.Toolchain.Available {
		logger.Debug().
			Bool("simulation_enabled", cfg.Toolchain.SimulationEnabled).
			Msg("apktool not found")
	}

	st, err := store.Open(ctx, cfg, home)
	if err != nil {
		return nil, err
	}

	prom := metrics.NewPrometheus()
	if flags != nil && flags.MetricsAddr != "" {
		addr, serveErr := prom.Serve(ctx, flags.MetricsAddr)
		if serveErr != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to serve metrics: %w", serveErr)
		}
		logger.Info().Str("addr", addr.String()).Msg("serving metrics")
	}

	sched := scheduler.New(
		cfg.Scheduler.MaxConcurrentInvocations,
		cfg.Scheduler.QueueWaitTimeout,
		scheduler.WithRecorder(prom),
	)

	manager := lifecycle.NewManager(lifecycle.Deps{
		Config:    cfg,
		Store:     st,
		Scheduler: sched,
		Toolchain: toolchain.NewInvoker(
			toolchain.WithMaxOutputBytes(cfg.Toolchain.MaxOutputBytes),
			toolchain.WithKillGrace(cfg.Toolchain.KillGrace),
		),
		Simulator:   simulate.New(clock.RealClock{}),
		Capability:  capability,
		ProjectsDir: config.ProjectsDir(home),
		Recorder:    prom,
	})

	return &app{
		cfg:     cfg,
		home:    home,
		store:   st,
		manager: manager,
		metrics: prom,
	}, nil
}

func (a *app) Close() error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close()
}

// withApp builds the app, runs fn and closes the app.
func withApp(ctx context.Context, flags *GlobalFlags, fn func(ctx context.Context, a *app) error) (err error) {
	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	return fn(ctx, a)
}
