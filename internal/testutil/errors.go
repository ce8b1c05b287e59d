// Package testutil provides shared fixtures for tests. Import it only from
// _test.go files.
package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Mock errors for simulating failures in tests.
var (
	// ErrMockVersionProbe stands in for a tool whose --version call fails.
	ErrMockVersionProbe = errors.New("no version")

	// ErrMockGuard stands in for a rejected precondition.
	ErrMockGuard = errors.New("guard failed")
)

// PackageBytes is the content WritePackage writes: a zip local-file header
// followed by filler.
const PackageBytes = "PK\x03\x04 upload"

// WritePackage writes a small upload candidate named name into dir and
// returns its path.
func WritePackage(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(PackageBytes), 0o600))
	return path
}
