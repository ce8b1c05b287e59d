package lifecycle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serkac1000/apk-needfix/internal/constants"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

func TestCreate(t *testing.T) {
	env := newTestEnv(t)
	src := env.writePackage(t, "Calculator.APK")

	outcome, err := env.m.Create(testContext(), CreateRequest{SourcePath: src})
	require.NoError(t, err)

	p := outcome.Project
	assert.Equal(t, "Calculator.APK", p.Name)
	assert.Equal(t, constants.ProjectStatusUploaded, p.Status)
	assert.Equal(t, filepath.Join(env.m.projectsDir, p.ID, constants.SourceArtifactName), p.SourceArtifactPath)
	assert.Empty(t, p.WorkingDirectory)
	require.Len(t, p.Transitions, 1)
	assert.Equal(t, constants.ProjectStatusCreated, p.Transitions[0].FromStatus)

	data, err := os.ReadFile(p.SourceArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04 upload", string(data))

	stored := env.load(t, p.ID)
	assert.Equal(t, p.Status, stored.Status)
	assert.Equal(t, constants.ProjectSchemaVersion, stored.SchemaVersion)
}

func TestCreate_CustomName(t *testing.T) {
	env := newTestEnv(t)

	outcome, err := env.m.Create(testContext(), CreateRequest{SourcePath: env.writePackage(t, "a.apk"), Name: "Calculator"})
	require.NoError(t, err)
	assert.Equal(t, "Calculator", outcome.Project.Name)
}

func TestCreate_RejectsInvalidUploads(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T, env *testEnv) string
		wantErr error
	}{
		{
			name:    "empty path",
			path:    func(*testing.T, *testEnv) string { return "" },
			wantErr: apkerrors.ErrEmptyValue,
		},
		{
			name:    "wrong extension",
			path:    func(t *testing.T, env *testEnv) string { return env.writePackage(t, "app.zip") },
			wantErr: apkerrors.ErrInvalidPackage,
		},
		{
			name:    "missing file",
			path:    func(_ *testing.T, env *testEnv) string { return filepath.Join(env.root, "missing.apk") },
			wantErr: apkerrors.ErrInvalidPackage,
		},
		{
			name: "directory",
			path: func(t *testing.T, env *testEnv) string {
				dir := filepath.Join(env.root, "dir.apk")
				require.NoError(t, os.Mkdir(dir, 0o750))
				return dir
			},
			wantErr: apkerrors.ErrInvalidPackage,
		},
		{
			name: "empty file",
			path: func(t *testing.T, env *testEnv) string {
				path := filepath.Join(env.root, "empty.apk")
				require.NoError(t, os.WriteFile(path, nil, 0o600))
				return path
			},
			wantErr: apkerrors.ErrInvalidPackage,
		},
		{
			name: "too large",
			path: func(t *testing.T, env *testEnv) string {
				env.cfg.Project.MaxUploadBytes = 4
				return env.writePackage(t, "big.apk")
			},
			wantErr: apkerrors.ErrPackageTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.m.Create(testContext(), CreateRequest{SourcePath: tt.path(t, env)})
			require.ErrorIs(t, err, tt.wantErr)

			projects, err := env.m.List(testContext())
			require.NoError(t, err)
			assert.Empty(t, projects)
		})
	}
}
