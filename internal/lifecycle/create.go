package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

// CreateRequest describes an upload.
type CreateRequest struct {
	// SourcePath is the package to import.
	SourcePath string

	// Name is the display name. Empty means the source file name.
	Name string
}

// Create registers a new project and copies the upload into it.
//
// The project is stored as CREATED before the copy starts and moves to
// UPLOADED once the copy is complete. A failed copy leaves it at CREATED,
// and the returned Outcome identifies it so it can be deleted.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Outcome, error) {
	info, err := m.validateUpload(req.SourcePath)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	dir := filepath.Join(m.projectsDir, id)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, apkerrors.IOf(err, "create project directory")
	}

	name := req.Name
	if name == "" {
		name = filepath.Base(req.SourcePath)
	}
	now := m.clock.Now()
	p := &domain.Project{
		ID:                 id,
		Name:               name,
		Status:             constants.ProjectStatusCreated,
		SourceArtifactPath: filepath.Join(dir, constants.SourceArtifactName),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := m.store.Create(ctx, p); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	log := m.logger(ctx, id)
	if err := copyFile(req.SourcePath, p.SourceArtifactPath); err != nil {
		log.Error().Err(err).Str("source", req.SourcePath).Msg("failed to copy upload")
		return &Outcome{Project: p.Clone()}, apkerrors.IOf(err, "copy %s into project", filepath.Base(req.SourcePath))
	}

	if err := Transition(ctx, p, constants.ProjectStatusUploaded, "package uploaded", m.clock.Now()); err != nil {
		return &Outcome{Project: p.Clone()}, err
	}
	if err := m.store.Save(ctx, p); err != nil {
		return &Outcome{Project: p.Clone()}, err
	}

	log.Info().
		Str("name", name).
		Int64("bytes", info.Size()).
		Msg("project created")
	return &Outcome{Project: p.Clone()}, nil
}

func (m *Manager) validateUpload(path string) (fs.FileInfo, error) {
	if path == "" {
		return nil, fmt.Errorf("source package %w", apkerrors.ErrEmptyValue)
	}
	if !strings.EqualFold(filepath.Ext(path), constants.PackageExtension) {
		return nil, fmt.Errorf("%w: %s does not have the %s extension",
			apkerrors.ErrInvalidPackage, filepath.Base(path), constants.PackageExtension)
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", apkerrors.ErrInvalidPackage, path)
	}
	if err != nil {
		return nil, apkerrors.IOf(err, "stat %s", path)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", apkerrors.ErrInvalidPackage, path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", apkerrors.ErrInvalidPackage, path)
	}

	limit := m.cfg.Project.MaxUploadBytes
	if limit <= 0 {
		limit = constants.DefaultMaxUploadBytes
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit",
			apkerrors.ErrPackageTooLarge, info.Size(), limit)
	}
	return info, nil
}
