package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serkac1000/apk-needfix/internal/constants"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromPaths_Defaults(t *testing.T) {
	cfg, err := LoadFromPaths(context.Background(), "", "")
	require.NoError(t, err)

	assert.True(t, cfg.Toolchain.SimulationEnabled)
	assert.Equal(t, constants.DefaultMaxConcurrentInvocations, cfg.Scheduler.MaxConcurrentInvocations)
	assert.Equal(t, constants.DefaultQueueWaitTimeout, cfg.Scheduler.QueueWaitTimeout)
	assert.Equal(t, constants.DefaultDecompileTimeout, cfg.Toolchain.Operations.Decompile.Timeout)
	assert.Equal(t, constants.DefaultCompileTimeout, cfg.Toolchain.Operations.Compile.Timeout)
	assert.Equal(t, []string{"d", "{src}", "-o", "{dir}", "-f"}, cfg.Toolchain.Operations.Decompile.Args)
	assert.Equal(t, []string{"b", "{dir}", "-o", "{artifact}"}, cfg.Toolchain.Operations.Compile.Args)
	assert.Equal(t, []string{"sign", "{artifact}"}, cfg.Toolchain.Operations.Sign.Args)
	assert.Equal(t, StoreBackendFile, cfg.Store.Backend)
	assert.Equal(t, constants.MaxRetryAttempts, cfg.Retry.MaxAttempts)
}

func TestLoadFromPaths_ProjectOverridesGlobal(t *testing.T) {
	global := writeConfig(t, t.TempDir(), `
toolchain:
  path: /opt/apktool
  simulation_enabled: false
scheduler:
  max_concurrent_invocations: 3
`)
	project := writeConfig(t, t.TempDir(), `
scheduler:
  max_concurrent_invocations: 4
  queue_wait_timeout: 45s
toolchain:
  operations:
    compile:
      timeout: 20m
`)

	cfg, err := LoadFromPaths(context.Background(), project, global)
	require.NoError(t, err)

	assert.Equal(t, "/opt/apktool", cfg.Toolchain.Path)
	assert.False(t, cfg.Toolchain.SimulationEnabled)
	assert.Equal(t, 4, cfg.Scheduler.MaxConcurrentInvocations)
	assert.Equal(t, 45*time.Second, cfg.Scheduler.QueueWaitTimeout)
	assert.Equal(t, 20*time.Minute, cfg.Toolchain.Operations.Compile.Timeout)
	assert.Equal(t, constants.DefaultDecompileTimeout, cfg.Toolchain.Operations.Decompile.Timeout)
}

func TestLoadFromPaths_EnvOverridesFiles(t *testing.T) {
	global := writeConfig(t, t.TempDir(), `
toolchain:
  simulation_enabled: true
`)
	t.Setenv("APKFIX_TOOLCHAIN_SIMULATION_ENABLED", "false")
	t.Setenv("APKFIX_SIGNING_KEYSTORE_PASS", "from-env")
	t.Setenv("APKFIX_TOOLCHAIN_OPERATIONS_SIGN_ARGS", "sign,--ks,{keystore},{artifact}")

	cfg, err := LoadFromPaths(context.Background(), "", global)
	require.NoError(t, err)

	assert.False(t, cfg.Toolchain.SimulationEnabled)
	assert.Equal(t, "from-env", cfg.Signing.KeystorePass)
	assert.Equal(t, []string{"sign", "--ks", "{keystore}", "{artifact}"}, cfg.Toolchain.Operations.Sign.Args)
}

func TestLoadFromPaths_QueueWaitPerOperation(t *testing.T) {
	global := writeConfig(t, t.TempDir(), `
scheduler:
  queue_wait_timeout: 45s
toolchain:
  operations:
    decompile:
      queue_wait_timeout: 5m
`)
	t.Setenv("APKFIX_TOOLCHAIN_OPERATIONS_SIGN_QUEUE_WAIT_TIMEOUT", "10s")

	cfg, err := LoadFromPaths(context.Background(), "", global)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Scheduler.QueueWaitTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Toolchain.Operations.Decompile.QueueWaitTimeout)
	assert.Equal(t, 10*time.Second, cfg.Toolchain.Operations.Sign.QueueWaitTimeout)
	assert.Zero(t, cfg.Toolchain.Operations.Compile.QueueWaitTimeout, "unset uses the scheduler default")
}

func TestLoadFromPaths_InvalidValues(t *testing.T) {
	global := writeConfig(t, t.TempDir(), `
scheduler:
  max_concurrent_invocations: 0
`)
	_, err := LoadFromPaths(context.Background(), "", global)
	require.ErrorIs(t, err, apkerrors.ErrConfigInvalid)
}

func TestLoadFromPaths_MalformedFile(t *testing.T) {
	global := writeConfig(t, t.TempDir(), "toolchain: [unterminated")
	_, err := LoadFromPaths(context.Background(), "", global)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read global config")
}

func TestWriteFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Toolchain.Path = "/opt/apktool.jar"
	cfg.Toolchain.Operations.Sign.Command = "apksigner"
	cfg.Signing.KeystorePass = "hunter22"
	cfg.Scheduler.QueueWaitTimeout = 30 * time.Second
	cfg.Toolchain.Operations.Decompile.QueueWaitTimeout = 2 * time.Minute

	require.NoError(t, WriteFile(path, cfg, false))

	data, err := os.ReadFile(path) //nolint:gosec // test temp dir
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter22")
	assert.Contains(t, string(data), "queue_wait_timeout: 30s")

	loaded, err := LoadFromPaths(context.Background(), "", path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/apktool.jar", loaded.Toolchain.Path)
	assert.Equal(t, "apksigner", loaded.Toolchain.Operations.Sign.Command)
	assert.Equal(t, 30*time.Second, loaded.Scheduler.QueueWaitTimeout)
	assert.Equal(t, 2*time.Minute, loaded.Toolchain.Operations.Decompile.QueueWaitTimeout)
	assert.Zero(t, loaded.Toolchain.Operations.Sign.QueueWaitTimeout)
	assert.NotContains(t, string(data), "queue_wait_timeout: 0s")

	err = WriteFile(path, cfg, false)
	require.ErrorIs(t, err, os.ErrExist)
	require.NoError(t, WriteFile(path, cfg, true))
}

func TestHomeDir_EnvOverride(t *testing.T) {
	t.Setenv("APKFIX_HOME", "/srv/apkfix")
	home, err := HomeDir()
	require.NoError(t, err)
	assert.Equal(t, "/srv/apkfix", home)

	resolved, err := ResolveHome(&Config{Home: "/explicit"})
	require.NoError(t, err)
	assert.Equal(t, "/explicit", resolved)

	assert.Equal(t, filepath.Join("/srv/apkfix", "projects"), ProjectsDir(home))
	assert.Equal(t, filepath.Join("/srv/apkfix", "projects.db"), SQLitePath(DefaultConfig(), home))
}
