// Package store persists project records.
//
// Two backends implement Store: FileStore keeps one JSON document per
// project next to its artifacts, and SQLiteStore keeps the same documents
// in a single database. Load and Save are atomic in both; a reader never
// observes a half-written record.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/serkac1000/apk-needfix/internal/config"
	"github.com/serkac1000/apk-needfix/internal/domain"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

// Directory and file permission constants.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Store defines project persistence.
type Store interface {
	// Create stores a new project. Returns ErrProjectExists if the id is taken.
	Create(ctx context.Context, project *domain.Project) error

	// Load returns the project with id, or ErrProjectNotFound.
	Load(ctx context.Context, id string) (*domain.Project, error)

	// Save replaces the stored project atomically. Returns ErrProjectNotFound
	// if it was never created.
	Save(ctx context.Context, project *domain.Project) error

	// List returns every project, newest first.
	List(ctx context.Context) ([]*domain.Project, error)

	// Delete removes the stored record.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// Open returns the backend selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config, home string) (Store, error) {
	switch strings.ToLower(cfg.Store.Backend) {
	case "", config.StoreBackendFile:
		return NewFileStore(config.ProjectsDir(home))
	case config.StoreBackendSQLite:
		return OpenSQLite(ctx, config.SQLitePath(cfg, home))
	default:
		return nil, fmt.Errorf("%w: %q", apkerrors.ErrUnknownStoreBackend, cfg.Store.Backend)
	}
}

// validateID rejects anything that is not a UUID, which also keeps ids from
// escaping the projects directory.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("project id %w", apkerrors.ErrEmptyValue)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", apkerrors.ErrProjectNotFound, id)
	}
	return nil
}

func checkProject(project *domain.Project) error {
	if project == nil {
		return fmt.Errorf("project %w", apkerrors.ErrEmptyValue)
	}
	return validateID(project.ID)
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
