package lifecycle

import (
	"context"
	"fmt"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

// Build runs whatever remains of decompile, compile and sign, stopping at
// the first failure. A signed project is returned unchanged.
func (m *Manager) Build(ctx context.Context, id string) (*Outcome, error) {
	var last *Outcome
	for range constants.OperationKinds() {
		p, err := m.store.Load(ctx, id)
		if err != nil {
			return last, err
		}

		kind, err := nextStep(p)
		if err != nil {
			return last, domain.NewOperationError("", err, "")
		}
		if kind == "" {
			if last == nil {
				last = &Outcome{Project: p}
			}
			return last, nil
		}

		outcome, err := m.run(ctx, id, kind)
		if outcome != nil {
			last = outcome
		}
		if err != nil {
			return last, err
		}
	}

	p, err := m.store.Load(ctx, id)
	if err != nil {
		return last, err
	}
	return &Outcome{Project: p, Result: resultOf(last)}, nil
}

// nextStep returns the operation that advances p toward SIGNED, or "" when
// it is already signed.
func nextStep(p *domain.Project) (constants.OperationKind, error) {
	switch p.Status {
	case constants.ProjectStatusUploaded:
		return constants.OperationDecompile, nil
	case constants.ProjectStatusDecompiled:
		return constants.OperationCompile, nil
	case constants.ProjectStatusCompiled:
		return constants.OperationSign, nil
	case constants.ProjectStatusSigned:
		return "", nil
	case constants.ProjectStatusFailed:
		if failedOperation(p) == constants.OperationDecompile {
			return constants.OperationDecompile, nil
		}
		return "", fmt.Errorf("%w: %s failed; reset the project first",
			apkerrors.ErrInvalidTransition, failedOperation(p))
	case constants.ProjectStatusDecompiling, constants.ProjectStatusCompiling, constants.ProjectStatusSigning:
		return "", fmt.Errorf("%w: project is %s", apkerrors.ErrProjectBusy, p.Status)
	case constants.ProjectStatusCreated:
	}
	return "", fmt.Errorf("%w: cannot build a project that is %s", apkerrors.ErrInvalidTransition, p.Status)
}

func resultOf(o *Outcome) *domain.OperationResult {
	if o == nil {
		return nil
	}
	return o.Result
}
