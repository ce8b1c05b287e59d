// Package domain provides shared domain types for apkfix.
// These types are used across all internal packages to ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case.
package domain

import (
	"path/filepath"
	"time"

	"github.com/serkac1000/apk-needfix/internal/constants"
)

// Project is the persisted record of one uploaded package and its lifecycle.
//
// Example JSON representation:
//
//	{
//	    "id": "9b2f3c1e-6f4a-4c55-9d7e-0f3c2a1b4d5e",
//	    "name": "calculator.apk",
//	    "status": "decompiled",
//	    "source_artifact_path": "/home/u/.apkfix/projects/9b2f.../original.apk",
//	    "working_directory": "/home/u/.apkfix/projects/9b2f.../work",
//	    "simulated": false,
//	    "created_at": "2026-03-01T10:00:00Z",
//	    "updated_at": "2026-03-01T10:01:12Z",
//	    "schema_version": 1
//	}
type Project struct {
	// ID is the immutable project identifier.
	ID string `json:"id"`

	// Name is a display name, usually the uploaded file name.
	Name string `json:"name"`

	// Status is the current lifecycle state.
	Status constants.ProjectStatus `json:"status"`

	// SourceArtifactPath points at the copy of the uploaded package. Set once.
	SourceArtifactPath string `json:"source_artifact_path,omitempty"`

	// WorkingDirectory holds decompiled, compiled and signed outputs.
	// Empty until the first decompile.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// LastError is present only while Status is failed.
	LastError *ProjectError `json:"last_error,omitempty"`

	// FailedFrom is the stable status held before the failing operation started.
	FailedFrom constants.ProjectStatus `json:"failed_from,omitempty"`

	// Simulated is set when the last completed operation ran without the real toolchain.
	Simulated bool `json:"simulated"`

	// LastResult summarizes the operation behind the most recent transition.
	LastResult *OperationRecord `json:"last_result,omitempty"`

	// Transitions is the audit trail of status changes.
	Transitions []Transition `json:"transitions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// SchemaVersion enables forward-compatible migrations of stored records.
	SchemaVersion int `json:"schema_version"`
}

// ProjectError is the structured failure kept on a failed project.
type ProjectError struct {
	Kind      constants.ErrorKind     `json:"kind"`
	Message   string                  `json:"message"`
	Output    string                  `json:"output,omitempty"`
	Operation constants.OperationKind `json:"operation"`
	Retryable bool                    `json:"retryable"`
}

// Transition records a single status change.
type Transition struct {
	FromStatus constants.ProjectStatus `json:"from_status"`
	ToStatus   constants.ProjectStatus `json:"to_status"`
	Timestamp  time.Time               `json:"timestamp"`
	Reason     string                  `json:"reason,omitempty"`
}

// OperationRecord is the persisted summary of an OperationResult.
type OperationRecord struct {
	Operation  constants.OperationKind `json:"operation"`
	Succeeded  bool                    `json:"succeeded"`
	Simulated  bool                    `json:"simulated"`
	ExitCode   int                     `json:"exit_code"`
	DurationMs int64                   `json:"duration_ms"`
	Truncated  bool                    `json:"truncated,omitempty"`
	Attempts   int                     `json:"attempts"`
	FinishedAt time.Time               `json:"finished_at"`
}

// Clone returns a deep copy so callers can mutate a project without aliasing
// the slices or pointers of the original.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	if p.LastError != nil {
		e := *p.LastError
		c.LastError = &e
	}
	if p.LastResult != nil {
		r := *p.LastResult
		c.LastResult = &r
	}
	if p.Transitions != nil {
		c.Transitions = append([]Transition(nil), p.Transitions...)
	}
	return &c
}

// Dir returns the project directory that contains the source artifact and work tree.
// It is derived from the source artifact path.
func (p *Project) Dir() string {
	if p.SourceArtifactPath == "" {
		return ""
	}
	return filepath.Dir(p.SourceArtifactPath)
}

// DecompiledDir returns the decompile output directory.
func (p *Project) DecompiledDir() string {
	return filepath.Join(p.WorkingDirectory, constants.DecompiledDir)
}

// CompiledArtifactPath returns where compile writes its package.
func (p *Project) CompiledArtifactPath() string {
	return filepath.Join(p.WorkingDirectory, constants.DistDir, constants.CompiledArtifactName)
}

// SignedArtifactPath returns where sign writes its package.
func (p *Project) SignedArtifactPath() string {
	return filepath.Join(p.WorkingDirectory, constants.DistDir, constants.SignedArtifactName)
}
