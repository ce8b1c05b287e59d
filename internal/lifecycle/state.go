package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/ctxutil"
	"github.com/serkac1000/apk-needfix/internal/domain"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

// ValidTransitions defines every allowed status change.
//
//	Created → Uploaded
//	Uploaded → Decompiling
//	Decompiling → Decompiled, Failed, or back to Uploaded/Decompiled on reset
//	Decompiled → Decompiling (re-decompile), Compiling
//	Compiling → Compiled, Failed, or back to Decompiled/Uploaded on reset
//	Compiled → Signing
//	Signing → Signed, Failed, or back to any earlier stable status on reset
//	Failed → Decompiling (retry a failed decompile), or a stable status on reset
//
// The edges out of transient statuses back to a stable one exist only for
// reset, which recovers projects left mid-operation by a crashed process.
//
//nolint:gochecknoglobals // Exported for testing and read-only lookup table
var ValidTransitions = map[constants.ProjectStatus][]constants.ProjectStatus{
	constants.ProjectStatusCreated:  {constants.ProjectStatusUploaded},
	constants.ProjectStatusUploaded: {constants.ProjectStatusDecompiling},
	constants.ProjectStatusDecompiling: {
		constants.ProjectStatusDecompiled,
		constants.ProjectStatusFailed,
		constants.ProjectStatusUploaded,
	},
	constants.ProjectStatusDecompiled: {constants.ProjectStatusDecompiling, constants.ProjectStatusCompiling},
	constants.ProjectStatusCompiling: {
		constants.ProjectStatusCompiled,
		constants.ProjectStatusFailed,
		constants.ProjectStatusDecompiled,
		constants.ProjectStatusUploaded,
	},
	constants.ProjectStatusCompiled: {constants.ProjectStatusSigning},
	constants.ProjectStatusSigning: {
		constants.ProjectStatusSigned,
		constants.ProjectStatusFailed,
		constants.ProjectStatusCompiled,
		constants.ProjectStatusDecompiled,
		constants.ProjectStatusUploaded,
	},
	constants.ProjectStatusFailed: {
		constants.ProjectStatusDecompiling,
		constants.ProjectStatusUploaded,
		constants.ProjectStatusDecompiled,
		constants.ProjectStatusCompiled,
	},
}

// IsValidTransition reports whether from → to is allowed. A status never
// transitions to itself.
func IsValidTransition(from, to constants.ProjectStatus) bool {
	if from == to {
		return false
	}
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change, appending it to the
// project's history. The caller persists the project.
func Transition(ctx context.Context, p *domain.Project, to constants.ProjectStatus, reason string, now time.Time) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: project is nil", apkerrors.ErrInvalidTransition)
	}

	from := p.Status
	if !IsValidTransition(from, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", apkerrors.ErrInvalidTransition, from, to)
	}

	p.Transitions = append(p.Transitions, domain.Transition{
		FromStatus: from,
		ToStatus:   to,
		Timestamp:  now,
		Reason:     reason,
	})
	p.Status = to
	p.UpdatedAt = now
	return nil
}

// transientStatus is the in-flight status of an operation.
func transientStatus(kind constants.OperationKind) constants.ProjectStatus {
	switch kind {
	case constants.OperationDecompile:
		return constants.ProjectStatusDecompiling
	case constants.OperationCompile:
		return constants.ProjectStatusCompiling
	case constants.OperationSign:
		return constants.ProjectStatusSigning
	}
	return ""
}

// completedStatus is the status an operation reaches on success.
func completedStatus(kind constants.OperationKind) constants.ProjectStatus {
	switch kind {
	case constants.OperationDecompile:
		return constants.ProjectStatusDecompiled
	case constants.OperationCompile:
		return constants.ProjectStatusCompiled
	case constants.OperationSign:
		return constants.ProjectStatusSigned
	}
	return ""
}

// predecessorStatus is the stable status an operation starts from on the
// normal path.
func predecessorStatus(kind constants.OperationKind) constants.ProjectStatus {
	switch kind {
	case constants.OperationDecompile:
		return constants.ProjectStatusUploaded
	case constants.OperationCompile:
		return constants.ProjectStatusDecompiled
	case constants.OperationSign:
		return constants.ProjectStatusCompiled
	}
	return ""
}

// operationFor maps a transient status back to its operation.
func operationFor(status constants.ProjectStatus) constants.OperationKind {
	switch status {
	case constants.ProjectStatusDecompiling:
		return constants.OperationDecompile
	case constants.ProjectStatusCompiling:
		return constants.OperationCompile
	case constants.ProjectStatusSigning:
		return constants.OperationSign
	}
	return ""
}

// AllowedOperations lists the operations that may start from p's current
// status and files on disk.
func AllowedOperations(p *domain.Project) []constants.OperationKind {
	var allowed []constants.OperationKind
	for _, kind := range constants.OperationKinds() {
		if checkStart(kind, p) == nil {
			allowed = append(allowed, kind)
		}
	}
	return allowed
}
