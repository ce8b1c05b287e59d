package simulate_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serkac1000/apk-needfix/internal/clock"
	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	"github.com/serkac1000/apk-needfix/internal/inspect"
	"github.com/serkac1000/apk-needfix/internal/simulate"
)

const testID = "9b2f3c1e-6f4a-4c55-9d7e-0f3c2a1b4d5e"

func newProject(t *testing.T, id string) *domain.Project {
	t.Helper()
	dir := t.TempDir()
	return &domain.Project{
		ID:                 id,
		Status:             constants.ProjectStatusDecompiling,
		SourceArtifactPath: filepath.Join(dir, constants.SourceArtifactName),
		WorkingDirectory:   filepath.Join(dir, constants.WorkDir),
	}
}

func testContext() context.Context {
	return zerolog.Nop().WithContext(context.Background())
}

func fixedEngine() *simulate.Engine {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return simulate.New(clock.Func(func() time.Time { return now }))
}

func TestSimulate_DecompileWritesTree(t *testing.T) {
	p := newProject(t, testID)

	result := fixedEngine().Simulate(testContext(), constants.OperationDecompile, p)

	require.NotNil(t, result)
	assert.True(t, result.Succeeded)
	assert.True(t, result.Simulated)
	assert.Equal(t, 0, result.ExitCode)
	assert.Empty(t, result.Stderr)
	assert.Equal(t, "simulated decompile: toolchain unavailable\n", result.Stdout)

	root := p.DecompiledDir()
	for _, rel := range []string{
		"AndroidManifest.xml",
		"apktool.yml",
		"res/values/strings.xml",
		"res/values/colors.xml",
		"res/layout/activity_main.xml",
		"smali/com/apkfix/p9b2f3c1e/MainActivity.smali",
	} {
		assert.FileExists(t, filepath.Join(root, filepath.FromSlash(rel)))
	}
	for _, rel := range []string{"res/drawable-xxxhdpi", "res/xml", "assets", "original/META-INF"} {
		assert.DirExists(t, filepath.Join(root, filepath.FromSlash(rel)))
	}

	manifest, err := os.ReadFile(filepath.Join(root, "AndroidManifest.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), `package="com.apkfix.p9b2f3c1e"`)
}

func TestSimulate_DecompileIsDeterministic(t *testing.T) {
	first := newProject(t, testID)
	second := newProject(t, testID)
	other := newProject(t, "0f0f0f0f-0000-4000-8000-000000000000")

	eng := fixedEngine()
	eng.Simulate(testContext(), constants.OperationDecompile, first)
	eng.Simulate(testContext(), constants.OperationDecompile, second)
	eng.Simulate(testContext(), constants.OperationDecompile, other)
	// Running again over an existing tree changes nothing.
	eng.Simulate(testContext(), constants.OperationDecompile, first)

	a, err := inspect.Summarize(first.DecompiledDir())
	require.NoError(t, err)
	b, err := inspect.Summarize(second.DecompiledDir())
	require.NoError(t, err)
	c, err := inspect.Summarize(other.DecompiledDir())
	require.NoError(t, err)

	assert.Equal(t, a.Digest, b.Digest)
	assert.NotEqual(t, a.Digest, c.Digest)
	assert.Equal(t, 1, a.Smali)
	assert.Equal(t, 1, a.Layouts)
	assert.Equal(t, 2, a.Values)
}

func TestSimulate_CompileWritesStablePackage(t *testing.T) {
	first := newProject(t, testID)
	second := newProject(t, testID)

	eng := fixedEngine()
	r1 := eng.Simulate(testContext(), constants.OperationCompile, first)
	r2 := eng.Simulate(testContext(), constants.OperationCompile, second)
	require.Empty(t, r1.Stderr)
	require.Empty(t, r2.Stderr)

	a, err := os.ReadFile(first.CompiledArtifactPath())
	require.NoError(t, err)
	b, err := os.ReadFile(second.CompiledArtifactPath())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	check, err := inspect.CheckPackage(first.CompiledArtifactPath())
	require.NoError(t, err)
	assert.True(t, check.Valid())
	assert.True(t, check.HasDex)
	assert.False(t, check.Signed)
	assert.Equal(t, 3, check.Entries)
}

func TestSimulate_SignAddsSignatureEntries(t *testing.T) {
	p := newProject(t, testID)
	eng := fixedEngine()
	eng.Simulate(testContext(), constants.OperationCompile, p)

	result := eng.Simulate(testContext(), constants.OperationSign, p)

	require.True(t, result.Succeeded)
	assert.Empty(t, result.Stderr)
	check, err := inspect.CheckPackage(p.SignedArtifactPath())
	require.NoError(t, err)
	assert.True(t, check.Valid())
	assert.True(t, check.Signed)
	assert.Equal(t, 6, check.Entries)
	assert.FileExists(t, p.CompiledArtifactPath(), "compiled package is left in place")
}

func TestSimulate_SignWithoutCompiledWritesPlaceholder(t *testing.T) {
	p := newProject(t, testID)

	result := fixedEngine().Simulate(testContext(), constants.OperationSign, p)

	require.True(t, result.Succeeded)
	assert.Empty(t, result.Stderr)
	check, err := inspect.CheckPackage(p.SignedArtifactPath())
	require.NoError(t, err)
	assert.True(t, check.Signed)
	assert.True(t, check.HasManifest)
}

func TestSimulate_WriteFailureStillSucceeds(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	p := &domain.Project{ID: testID, WorkingDirectory: filepath.Join(blocker, "work")}

	result := fixedEngine().Simulate(testContext(), constants.OperationDecompile, p)

	assert.True(t, result.Succeeded)
	assert.True(t, result.Simulated)
	assert.NotEmpty(t, result.Stderr)
}

func TestSimulate_UnknownOperation(t *testing.T) {
	p := newProject(t, testID)

	result := fixedEngine().Simulate(testContext(), constants.OperationKind("publish"), p)

	assert.True(t, result.Succeeded)
	assert.Contains(t, result.Stderr, "unknown operation")
}
