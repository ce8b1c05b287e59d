package lifecycle

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// prepareOutput gives an attempt a clean output location.
//
//   - decompile removes previous decompiled sources and built packages.
//   - compile removes previous packages so a stale one never passes for new output.
//   - sign copies the compiled package to the signed path; the signer
//     works on the copy in place.
func prepareOutput(kind constants.OperationKind, p *domain.Project) error {
	dist := filepath.Join(p.WorkingDirectory, constants.DistDir)

	switch kind {
	case constants.OperationDecompile:
		if err := os.MkdirAll(p.WorkingDirectory, dirPerm); err != nil {
			return apkerrors.IOf(err, "create working directory")
		}
		if err := os.RemoveAll(p.DecompiledDir()); err != nil {
			return apkerrors.IOf(err, "clean decompiled sources")
		}
		if err := os.RemoveAll(dist); err != nil {
			return apkerrors.IOf(err, "clean built packages")
		}

	case constants.OperationCompile:
		if err := os.MkdirAll(dist, dirPerm); err != nil {
			return apkerrors.IOf(err, "create output directory")
		}
		for _, path := range []string{p.CompiledArtifactPath(), p.SignedArtifactPath()} {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return apkerrors.IOf(err, "remove stale package %s", filepath.Base(path))
			}
		}

	case constants.OperationSign:
		if err := os.MkdirAll(dist, dirPerm); err != nil {
			return apkerrors.IOf(err, "create output directory")
		}
		if err := copyFile(p.CompiledArtifactPath(), p.SignedArtifactPath()); err != nil {
			return apkerrors.IOf(err, "copy compiled package for signing")
		}
	}
	return nil
}

// missingOutput returns the expected output of kind if it does not exist.
func missingOutput(kind constants.OperationKind, p *domain.Project) string {
	switch kind {
	case constants.OperationDecompile:
		if !dirExists(p.DecompiledDir()) {
			return p.DecompiledDir()
		}
	case constants.OperationCompile:
		if !fileExists(p.CompiledArtifactPath()) {
			return p.CompiledArtifactPath()
		}
	case constants.OperationSign:
		if !fileExists(p.SignedArtifactPath()) {
			return p.SignedArtifactPath()
		}
	}
	return ""
}

// copyFile copies src to dst through a temp file and rename, so dst is
// either absent or complete.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src) //nolint:gosec // src is a project artifact path
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //nolint:gosec // dst is a project artifact path
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if err = out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
