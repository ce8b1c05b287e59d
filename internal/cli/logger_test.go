package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serkac1000/apk-needfix/internal/constants"
)

func TestSelectLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zerolog.DebugLevel, selectLevel(true, false))
	assert.Equal(t, zerolog.WarnLevel, selectLevel(false, true))
	assert.Equal(t, zerolog.InfoLevel, selectLevel(false, false))
}

func TestInitLoggerWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLoggerWithWriter(false, false, &buf)

	logger.Info().Str("project_id", "p1").Msg("project created")
	logger.Debug().Msg("hidden")

	out := buf.String()
	assert.Contains(t, out, `"project_id":"p1"`)
	assert.Contains(t, out, "project created")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"time"`)
}

func TestInitLoggerWithWriter_FlagsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLoggerWithWriter(false, false, &buf)

	logger.Info().Msg("running apksigner sign --ks-pass pass:hunter2 out.apk")

	assert.Contains(t, buf.String(), `"contains_filtered_data":true`)
}

func TestSelectOutput_NonTTY(t *testing.T) {
	// Test binaries run with stderr redirected.
	assert.Equal(t, os.Stderr, selectOutput())
}

func TestLogFilePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("APKFIX_HOME", home)

	path, err := LogFilePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, constants.LogsDir, constants.CLILogFileName), path)
}

func TestInitLogger_WritesFilteredFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("APKFIX_HOME", home)

	logger := InitLogger(false, false)
	logger.Info().Str("operation", "sign").Msg("apksigner sign --ks-pass pass:hunter2 out.apk")
	CloseLogFile()

	data, err := os.ReadFile(filepath.Join(home, constants.LogsDir, constants.CLILogFileName)) //nolint:gosec // test temp dir
	require.NoError(t, err)
	assert.Contains(t, string(data), `"operation":"sign"`)
	assert.NotContains(t, string(data), "hunter2")
}

func TestInitLogger_FallsBackWithoutLogDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	t.Setenv("APKFIX_HOME", file)

	logger := InitLogger(true, false)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	CloseLogFile()
}

func TestCloseLogFile_NoOpWhenNil(_ *testing.T) {
	CloseLogFile()
	CloseLogFile()
}
