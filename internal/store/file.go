package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
	"github.com/serkac1000/apk-needfix/internal/flock"
)

// FileStore implements Store with one project.json per project directory.
// Every read and write holds an OS-level lock on project.json.lock, so
// separate apkfix processes cannot interleave a write.
type FileStore struct {
	root        string // <home>/projects
	lockTimeout time.Duration
}

// NewFileStore creates a FileStore rooted at the projects directory.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("projects directory %w", apkerrors.ErrEmptyValue)
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, apkerrors.IOf(err, "create projects directory")
	}
	return &FileStore{root: root, lockTimeout: flock.DefaultTimeout}, nil
}

// Root returns the projects directory.
func (s *FileStore) Root() string {
	return s.root
}

func (s *FileStore) projectDir(id string) string {
	return filepath.Join(s.root, id)
}

func (s *FileStore) projectFile(id string) string {
	return filepath.Join(s.projectDir(id), constants.ProjectFileName)
}

func (s *FileStore) lockPath(id string) string {
	return s.projectFile(id) + ".lock"
}

// Create implements Store. The project directory may already exist; the
// record itself must not.
func (s *FileStore) Create(ctx context.Context, project *domain.Project) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := checkProject(project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	if _, err := os.Stat(s.projectFile(project.ID)); err == nil {
		return fmt.Errorf("failed to create project '%s': %w", project.ID, apkerrors.ErrProjectExists)
	}
	if err := os.MkdirAll(s.projectDir(project.ID), dirPerm); err != nil {
		return apkerrors.IOf(err, "create project directory")
	}

	lock, err := flock.Acquire(ctx, s.lockPath(project.ID), s.lockTimeout)
	if err != nil {
		return fmt.Errorf("failed to create project '%s': %w", project.ID, err)
	}
	defer func() { _ = lock.Release() }()

	project.SchemaVersion = constants.ProjectSchemaVersion
	return s.write(project)
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context, id string) (*domain.Project, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.projectFile(id)); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", apkerrors.ErrProjectNotFound, id)
	}

	lock, err := flock.Acquire(ctx, s.lockPath(id), s.lockTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to load project '%s': %w", id, err)
	}
	defer func() { _ = lock.Release() }()

	data, err := os.ReadFile(s.projectFile(id)) //#nosec G304 -- id is validated as a UUID
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apkerrors.ErrProjectNotFound, id)
		}
		return nil, apkerrors.IOf(err, "read project %s", id)
	}

	var project domain.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, apkerrors.IOf(err, "parse project %s: corrupted record", id)
	}
	return &project, nil
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, project *domain.Project) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := checkProject(project); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	if _, err := os.Stat(s.projectFile(project.ID)); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", apkerrors.ErrProjectNotFound, project.ID)
	}

	lock, err := flock.Acquire(ctx, s.lockPath(project.ID), s.lockTimeout)
	if err != nil {
		return fmt.Errorf("failed to save project '%s': %w", project.ID, err)
	}
	defer func() { _ = lock.Release() }()

	return s.write(project)
}

func (s *FileStore) write(project *domain.Project) error {
	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project '%s': %w", project.ID, err)
	}
	if err := atomicWrite(s.projectFile(project.ID), data); err != nil {
		return apkerrors.IOf(err, "write project %s", project.ID)
	}
	return nil
}

// List implements Store. Directories without a readable record are skipped.
func (s *FileStore) List(ctx context.Context) ([]*domain.Project, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []*domain.Project{}, nil
	}
	if err != nil {
		return nil, apkerrors.IOf(err, "list projects")
	}

	projects := make([]*domain.Project, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || validateID(entry.Name()) != nil {
			continue
		}
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		project, err := s.Load(ctx, entry.Name())
		if err != nil {
			continue
		}
		projects = append(projects, project)
	}

	sortNewestFirst(projects)
	return projects, nil
}

// Delete implements Store. It removes the whole project directory,
// artifacts included.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	dir := s.projectDir(id)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", apkerrors.ErrProjectNotFound, id)
	}

	// Hold the lock until no writer can be mid-rename, then drop it before
	// removal since the lock file lives inside the directory.
	lock, err := flock.Acquire(ctx, s.lockPath(id), s.lockTimeout)
	if err != nil {
		return fmt.Errorf("failed to delete project '%s': %w", id, err)
	}
	_ = lock.Release()

	if err := os.RemoveAll(dir); err != nil {
		return apkerrors.IOf(err, "remove project %s", id)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}

func sortNewestFirst(projects []*domain.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
}

// atomicWrite writes data to a temp file, syncs it and renames it over path.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
