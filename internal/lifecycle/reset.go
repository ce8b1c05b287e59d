package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

// Reset clears a failure and returns the project to its last stable status.
//
//   - FAILED returns to the status held before the failing operation.
//   - A transient status left behind by a crashed process returns to the
//     status the operation started from.
//   - Any other status only has a stale last_error cleared.
//
// The target is lowered when its outputs are gone from disk, so a reset
// never claims a state the working directory cannot back. Returning to
// UPLOADED removes the working directory. Reset holds the project lock and
// fails with ProjectBusy while an operation runs.
func (m *Manager) Reset(ctx context.Context, id string) (*Outcome, error) {
	var outcome *Outcome
	err := m.scheduler.Exclusive(ctx, id, func(ctx context.Context) error {
		p, err := m.store.Load(ctx, id)
		if err != nil {
			return err
		}

		target := resetTarget(p)
		if target == "" {
			if p.LastError != nil || p.FailedFrom != "" {
				p.LastError = nil
				p.FailedFrom = ""
				p.UpdatedAt = m.clock.Now()
				if err := m.store.Save(ctx, p); err != nil {
					return err
				}
			}
			outcome = &Outcome{Project: p.Clone()}
			return nil
		}

		target = settle(target, p)
		if target == constants.ProjectStatusUploaded && p.WorkingDirectory != "" {
			if err := os.RemoveAll(p.WorkingDirectory); err != nil {
				return apkerrors.IOf(err, "remove working directory")
			}
			p.WorkingDirectory = ""
		}

		if err := Transition(ctx, p, target, "reset", m.clock.Now()); err != nil {
			return err
		}
		p.LastError = nil
		p.FailedFrom = ""
		if err := m.store.Save(ctx, p); err != nil {
			return err
		}

		log := m.logger(ctx, id)
		log.Info().Str("status", string(target)).Msg("project reset")
		outcome = &Outcome{Project: p.Clone()}
		return nil
	})
	if err != nil {
		if errors.Is(err, apkerrors.ErrProjectBusy) {
			return nil, domain.NewOperationError("", err, "")
		}
		return nil, err
	}
	return outcome, nil
}

// resetTarget returns the status to reset to, or "" if the status is stable.
func resetTarget(p *domain.Project) constants.ProjectStatus {
	switch {
	case p.Status == constants.ProjectStatusFailed:
		if p.FailedFrom != "" {
			return p.FailedFrom
		}
		if op := failedOperation(p); op != "" {
			return predecessorStatus(op)
		}
		return constants.ProjectStatusUploaded

	case p.Status.IsTransient():
		// The transition into the transient status records where it started.
		for i := len(p.Transitions) - 1; i >= 0; i-- {
			t := p.Transitions[i]
			if t.ToStatus != p.Status {
				continue
			}
			if t.FromStatus != constants.ProjectStatusFailed {
				return t.FromStatus
			}
			break
		}
		if p.FailedFrom != "" {
			return p.FailedFrom
		}
		return predecessorStatus(operationFor(p.Status))
	}
	return ""
}

// settle lowers target until the files on disk support it.
func settle(target constants.ProjectStatus, p *domain.Project) constants.ProjectStatus {
	if target == constants.ProjectStatusCompiled && !fileExists(p.CompiledArtifactPath()) {
		target = constants.ProjectStatusDecompiled
	}
	if target == constants.ProjectStatusDecompiled && !dirExists(p.DecompiledDir()) {
		target = constants.ProjectStatusUploaded
	}
	return target
}

// Delete removes a project, its files and its record. It holds the project
// lock, so it fails with ProjectBusy while an operation runs.
func (m *Manager) Delete(ctx context.Context, id string) error {
	err := m.scheduler.Exclusive(ctx, id, func(ctx context.Context) error {
		if _, err := m.store.Load(ctx, id); err != nil {
			return err
		}
		if err := m.store.Delete(ctx, id); err != nil {
			return err
		}
		// The file store already removed the directory; other backends did not.
		dir := filepath.Join(m.projectsDir, id)
		if err := os.RemoveAll(dir); err != nil {
			return apkerrors.IOf(err, "remove project directory")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apkerrors.ErrProjectBusy) {
			return domain.NewOperationError("", err, "")
		}
		return fmt.Errorf("failed to delete project '%s': %w", id, err)
	}

	m.scheduler.Forget(id)
	log := m.logger(ctx, id)
	log.Info().Msg("project deleted")
	return nil
}
