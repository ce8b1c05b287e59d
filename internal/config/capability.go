package config

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/ctxutil"
)

// versionProbeTimeout bounds each "--version" call made during detection.
const versionProbeTimeout = 10 * time.Second

//nolint:gochecknoglobals // Compiled once
var versionRe = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?)`)

// ToolCommand is a resolved way to launch a toolchain executable.
type ToolCommand struct {
	// Name is the configured or candidate name that was resolved.
	Name string `json:"name"`

	// Path is the executable to start. For jar toolchains this is java.
	Path string `json:"path,omitempty"`

	// Prefix is prepended to every argument list (["-jar", "/opt/apktool.jar"]).
	Prefix []string `json:"prefix,omitempty"`

	// Version is informational output of the version probe.
	Version string `json:"version,omitempty"`

	Available bool `json:"available"`
}

// Capability is the toolchain availability resolved once at startup and
// injected into the lifecycle manager. Nothing re-probes the environment
// after it is built.
type Capability struct {
	// SimulationEnabled mirrors toolchain.simulation_enabled.
	SimulationEnabled bool `json:"simulation_enabled"`

	// Toolchain is the apktool resolution.
	Toolchain ToolCommand `json:"toolchain"`

	// Operations maps each operation to the command it runs. Operations
	// without a command override share the toolchain entry.
	Operations map[constants.OperationKind]ToolCommand `json:"operations"`

	DetectedAt time.Time `json:"detected_at"`
}

// Command returns the command resolved for kind.
func (c *Capability) Command(kind constants.OperationKind) ToolCommand {
	if c == nil {
		return ToolCommand{}
	}
	if cmd, ok := c.Operations[kind]; ok {
		return cmd
	}
	return c.Toolchain
}

// Available reports whether kind can run against a real executable.
func (c *Capability) Available(kind constants.OperationKind) bool {
	return c.Command(kind).Available
}

// CommandExecutor abstracts executable lookup for testability.
type CommandExecutor interface {
	// LookPath searches for an executable named file in the PATH.
	LookPath(file string) (string, error)

	// Run executes a command and returns its combined output.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// DefaultCommandExecutor implements CommandExecutor using os/exec.
type DefaultCommandExecutor struct{}

// LookPath searches for an executable in the PATH.
func (e *DefaultCommandExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run executes a command and returns its combined output.
func (e *DefaultCommandExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = nil
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// ToolchainDetector resolves a Capability from configuration.
type ToolchainDetector struct {
	executor CommandExecutor
	now      func() time.Time
}

// NewToolchainDetector creates a detector backed by os/exec.
func NewToolchainDetector() *ToolchainDetector {
	return NewToolchainDetectorWithExecutor(&DefaultCommandExecutor{})
}

// NewToolchainDetectorWithExecutor creates a detector with a custom executor.
func NewToolchainDetectorWithExecutor(executor CommandExecutor) *ToolchainDetector {
	return &ToolchainDetector{
		executor: executor,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Detect resolves the toolchain and every per-operation command override,
// then probes versions concurrently. A missing tool is reported as
// unavailable, never as an error; only context cancellation fails Detect.
func (d *ToolchainDetector) Detect(ctx context.Context, cfg *ToolchainConfig) (*Capability, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	capability := &Capability{
		SimulationEnabled: cfg.SimulationEnabled,
		Toolchain:         d.resolveToolchain(cfg),
		Operations:        make(map[constants.OperationKind]ToolCommand, len(constants.OperationKinds())),
		DetectedAt:        d.now(),
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		version := d.probeVersion(gCtx, capability.Toolchain)
		mu.Lock()
		capability.Toolchain.Version = version
		mu.Unlock()
		return nil
	})

	for _, kind := range constants.OperationKinds() {
		override := cfg.Operations.For(kind).Command
		if override == "" {
			continue
		}
		cmd := d.resolveCommand(override, cfg.JavaPath)
		g.Go(func() error {
			cmd.Version = d.probeVersion(gCtx, cmd)
			mu.Lock()
			capability.Operations[kind] = cmd
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	for _, kind := range constants.OperationKinds() {
		if _, ok := capability.Operations[kind]; !ok {
			capability.Operations[kind] = capability.Toolchain
		}
	}

	zerolog.Ctx(ctx).Debug().
		Str("component", "config").
		Str("toolchain", capability.Toolchain.Path).
		Bool("available", capability.Toolchain.Available).
		Str("version", capability.Toolchain.Version).
		Msg("toolchain detected")

	return capability, nil
}

// resolveToolchain tries the configured path, or the default candidates in order.
func (d *ToolchainDetector) resolveToolchain(cfg *ToolchainConfig) ToolCommand {
	candidates := constants.DefaultToolchainCandidates
	if cfg.Path != "" {
		candidates = []string{cfg.Path}
	}

	for _, candidate := range candidates {
		if cmd := d.resolveCommand(candidate, cfg.JavaPath); cmd.Available {
			return cmd
		}
	}
	return ToolCommand{Name: candidates[0]}
}

// resolveCommand resolves a single executable or jar.
func (d *ToolchainDetector) resolveCommand(name, javaPath string) ToolCommand {
	cmd := ToolCommand{Name: name}

	if strings.HasSuffix(strings.ToLower(name), ".jar") {
		jar, err := filepath.Abs(name)
		if err != nil {
			return cmd
		}
		if info, err := os.Stat(jar); err != nil || info.IsDir() {
			return cmd
		}
		if javaPath == "" {
			javaPath = "java"
		}
		java, err := d.executor.LookPath(javaPath)
		if err != nil {
			return cmd
		}
		cmd.Path = java
		cmd.Prefix = []string{"-jar", jar}
		cmd.Available = true
		return cmd
	}

	path, err := d.executor.LookPath(name)
	if err != nil {
		return cmd
	}
	cmd.Path = path
	cmd.Available = true
	return cmd
}

// probeVersion runs "<tool> --version" for display purposes only.
func (d *ToolchainDetector) probeVersion(ctx context.Context, cmd ToolCommand) string {
	if !cmd.Available {
		return ""
	}
	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	args := append(append([]string(nil), cmd.Prefix...), "--version")
	output, err := d.executor.Run(probeCtx, cmd.Path, args...)
	if err != nil {
		return "unknown"
	}
	if m := versionRe.FindStringSubmatch(output); len(m) > 1 {
		return m[1]
	}
	return "unknown"
}

// DetectToolchain resolves the capability with the os/exec-backed detector.
func DetectToolchain(ctx context.Context, cfg *ToolchainConfig) (*Capability, error) {
	return NewToolchainDetector().Detect(ctx, cfg)
}
