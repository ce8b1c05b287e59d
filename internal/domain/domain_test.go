package domain_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

func TestProject_JSONFieldNames(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &domain.Project{
		ID:                 "p1",
		Status:             constants.ProjectStatusFailed,
		SourceArtifactPath: "/data/p1/original.apk",
		WorkingDirectory:   "/data/p1/work",
		LastError: &domain.ProjectError{
			Kind:      constants.ErrorKindTimeout,
			Message:   "timed out",
			Operation: constants.OperationCompile,
			Retryable: true,
		},
		FailedFrom: constants.ProjectStatusDecompiled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "failed", raw["status"])
	assert.Equal(t, "/data/p1/original.apk", raw["source_artifact_path"])
	assert.Equal(t, "decompiled", raw["failed_from"])

	lastErr, ok := raw["last_error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Timeout", lastErr["kind"])
	assert.Equal(t, "compile", lastErr["operation"])
	assert.Equal(t, true, lastErr["retryable"])
}

func TestProject_Paths(t *testing.T) {
	p := &domain.Project{
		SourceArtifactPath: filepath.Join("data", "p1", "original.apk"),
		WorkingDirectory:   filepath.Join("data", "p1", "work"),
	}

	assert.Equal(t, filepath.Join("data", "p1"), p.Dir())
	assert.Equal(t, filepath.Join("data", "p1", "work", "decompiled"), p.DecompiledDir())
	assert.Equal(t, filepath.Join("data", "p1", "work", "dist", "compiled.apk"), p.CompiledArtifactPath())
	assert.Equal(t, filepath.Join("data", "p1", "work", "dist", "signed.apk"), p.SignedArtifactPath())

	assert.Empty(t, (&domain.Project{}).Dir())
}

func TestProject_CloneDoesNotAlias(t *testing.T) {
	orig := &domain.Project{
		ID:          "p1",
		LastError:   &domain.ProjectError{Message: "boom"},
		LastResult:  &domain.OperationRecord{ExitCode: 1},
		Transitions: []domain.Transition{{FromStatus: constants.ProjectStatusUploaded}},
	}

	c := orig.Clone()
	c.LastError.Message = "changed"
	c.LastResult.ExitCode = 2
	c.Transitions[0].Reason = "changed"

	assert.Equal(t, "boom", orig.LastError.Message)
	assert.Equal(t, 1, orig.LastResult.ExitCode)
	assert.Empty(t, orig.Transitions[0].Reason)

	var nilProject *domain.Project
	assert.Nil(t, nilProject.Clone())
}

func TestOperationResult_Output(t *testing.T) {
	var nilResult *domain.OperationResult
	assert.Empty(t, nilResult.Output())

	assert.Equal(t, "out", (&domain.OperationResult{Stdout: "out"}).Output())
	assert.Equal(t, "err", (&domain.OperationResult{Stderr: "err"}).Output())
	assert.Equal(t, "err\nout", (&domain.OperationResult{Stdout: "out", Stderr: "err"}).Output())
}

func TestOperationResult_Record(t *testing.T) {
	done := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := &domain.OperationResult{
		Succeeded:   true,
		Simulated:   true,
		ExitCode:    0,
		DurationMs:  42,
		Truncated:   true,
		CompletedAt: done,
	}

	rec := r.Record(constants.OperationDecompile, 2)
	assert.Equal(t, constants.OperationDecompile, rec.Operation)
	assert.True(t, rec.Succeeded)
	assert.True(t, rec.Simulated)
	assert.True(t, rec.Truncated)
	assert.Equal(t, int64(42), rec.DurationMs)
	assert.Equal(t, 2, rec.Attempts)
	assert.Equal(t, done, rec.FinishedAt)
}

func TestErrorKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want constants.ErrorKind
	}{
		{"nil", nil, ""},
		{"busy", apkerrors.ErrProjectBusy, constants.ErrorKindProjectBusy},
		{"queue", fmt.Errorf("wait: %w", apkerrors.ErrQueueTimeout), constants.ErrorKindQueueTimeout},
		{"not found", apkerrors.ErrToolNotFound, constants.ErrorKindToolNotFound},
		{"timeout", apkerrors.ErrToolTimeout, constants.ErrorKindTimeout},
		{"deadline", context.DeadlineExceeded, constants.ErrorKindTimeout},
		{"exit", apkerrors.ErrToolExitedNonZero, constants.ErrorKindToolExitedNonZero},
		{"io", apkerrors.IOf(errors.New("disk full"), "write"), constants.ErrorKindIOError},
		{"lock", apkerrors.ErrLockTimeout, constants.ErrorKindIOError},
		{"transition", apkerrors.ErrInvalidTransition, constants.ErrorKindInvalidStateTransition},
		{"other", errors.New("odd"), constants.ErrorKindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ErrorKindOf(tt.err))
		})
	}
}

func TestOperationError(t *testing.T) {
	err := domain.NewOperationError(constants.OperationCompile,
		apkerrors.Wrap(apkerrors.ErrToolExitedNonZero, "exit status 1"), "brut.androlib error")

	require.ErrorIs(t, err, apkerrors.ErrToolExitedNonZero)
	assert.Equal(t, constants.ErrorKindToolExitedNonZero, err.Kind)
	assert.Equal(t, "compile ToolExitedNonZero: exit status 1: toolchain exited non-zero", err.Error())
	assert.Equal(t, constants.ErrorKindToolExitedNonZero, domain.ErrorKindOf(fmt.Errorf("outer: %w", err)))

	pe := err.ProjectError()
	assert.Equal(t, constants.OperationCompile, pe.Operation)
	assert.Equal(t, "brut.androlib error", pe.Output)
	assert.False(t, pe.Retryable)
}
