// Package simulate stands in for the external toolchain when it is not
// installed. It writes a deterministic decompiled tree and placeholder
// packages so every downstream step, including resource editors, has
// something realistic to work on.
//
// Output depends only on the project id and the operation kind: no
// timestamps, no randomness, and zip entries carry a fixed modified time.
package simulate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/serkac1000/apk-needfix/internal/clock"
	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
)

// Engine produces simulated operation results.
type Engine struct {
	clock clock.Clock
}

// New creates an Engine. A nil clock uses the real clock.
func New(clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Engine{clock: clk}
}

// Simulate performs kind against project's working directory. It never
// fails: write errors are logged and reported in Stderr, and the result is
// still a simulated success.
func (e *Engine) Simulate(ctx context.Context, kind constants.OperationKind, project *domain.Project) *domain.OperationResult {
	logger := zerolog.Ctx(ctx).With().
		Str("component", "simulate").
		Str("project_id", project.ID).
		Str("operation", string(kind)).
		Logger()

	started := e.clock.Now()
	var err error
	switch kind {
	case constants.OperationDecompile:
		err = writeTree(project.DecompiledDir(), newTreeData(project.ID))
	case constants.OperationCompile:
		err = writeCompiled(project.CompiledArtifactPath(), newTreeData(project.ID))
	case constants.OperationSign:
		err = writeSigned(project.CompiledArtifactPath(), project.SignedArtifactPath(), newTreeData(project.ID))
	default:
		err = fmt.Errorf("%w: %q", errUnknownKind, kind)
	}
	completed := e.clock.Now()

	result := &domain.OperationResult{
		Command:     "simulate " + string(kind),
		Succeeded:   true,
		Simulated:   true,
		ExitCode:    0,
		Stdout:      fmt.Sprintf("simulated %s: toolchain unavailable\n", kind),
		DurationMs:  completed.Sub(started).Milliseconds(),
		StartedAt:   started,
		CompletedAt: completed,
	}
	if err != nil {
		logger.Warn().Err(err).Msg("simulation could not write all outputs")
		result.Stderr = err.Error()
	} else {
		logger.Info().Dur("duration", completed.Sub(started)).Msg("simulated operation")
	}
	return result
}

// treeData is the template input for one project.
type treeData struct {
	ID8         string
	Package     string
	PackagePath string
	AppName     string
	ApkName     string
}

func newTreeData(id string) treeData {
	id8 := shortID(id)
	pkg := "com.apkfix.p" + id8
	return treeData{
		ID8:         id8,
		Package:     pkg,
		PackagePath: strings.ReplaceAll(pkg, ".", "/"),
		AppName:     "Simulated " + id8,
		ApkName:     constants.SourceArtifactName,
	}
}

// shortID returns the first eight lowercase hex digits of id, padded with
// zeros when the id has fewer.
func shortID(id string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(id) {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') {
			b.WriteRune(r)
			if b.Len() == 8 {
				break
			}
		}
	}
	for b.Len() < 8 {
		b.WriteByte('0')
	}
	return b.String()
}

// fixedModTime is stamped on every zip entry.
//
//nolint:gochecknoglobals // constant value
var fixedModTime = time.Date(2008, time.January, 1, 0, 0, 0, 0, time.UTC)
