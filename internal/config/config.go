// Package config provides configuration management for apkfix.
//
// Configuration is layered with viper: built-in defaults, then the global
// file (~/.apkfix/config.yaml), then a project file (./.apkfix/config.yaml),
// then APKFIX_* environment variables. Durations are written as Go duration
// strings ("90s", "10m").
package config

import (
	"time"

	"github.com/serkac1000/apk-needfix/internal/constants"
)

// Config is the complete apkfix configuration.
type Config struct {
	// Home is the data directory. Empty means APKFIX_HOME or ~/.apkfix.
	Home string `yaml:"home" mapstructure:"home"`

	Toolchain ToolchainConfig `yaml:"toolchain" mapstructure:"toolchain"`
	Signing   SigningConfig   `yaml:"signing" mapstructure:"signing"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Project   ProjectConfig   `yaml:"project" mapstructure:"project"`
}

// ToolchainConfig describes the external decompile/build/sign executable.
type ToolchainConfig struct {
	// Path is the apktool executable or jar. Empty means search the default candidates.
	Path string `yaml:"path" mapstructure:"path"`

	// JavaPath launches jar toolchains. Empty means "java" from PATH.
	JavaPath string `yaml:"java_path" mapstructure:"java_path"`

	// SimulationEnabled substitutes deterministic placeholder output when the
	// toolchain cannot be found.
	SimulationEnabled bool `yaml:"simulation_enabled" mapstructure:"simulation_enabled"`

	// MaxOutputBytes caps captured stdout and stderr, each.
	MaxOutputBytes int `yaml:"max_output_bytes" mapstructure:"max_output_bytes"`

	// KillGrace is the pause between SIGTERM and SIGKILL on termination.
	KillGrace time.Duration `yaml:"kill_grace" mapstructure:"kill_grace"`

	Operations OperationsConfig `yaml:"operations" mapstructure:"operations"`
}

// OperationsConfig holds the per-operation invocation settings.
type OperationsConfig struct {
	Decompile OperationConfig `yaml:"decompile" mapstructure:"decompile"`
	Compile   OperationConfig `yaml:"compile" mapstructure:"compile"`
	Sign      OperationConfig `yaml:"sign" mapstructure:"sign"`
}

// OperationConfig is the argument template and budget for one operation.
type OperationConfig struct {
	// Command overrides the toolchain executable for this operation (e.g. apksigner).
	Command string `yaml:"command,omitempty" mapstructure:"command"`

	// Args is the argument template. See constants.Placeholder*.
	Args []string `yaml:"args" mapstructure:"args"`

	// Timeout bounds a single invocation.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// QueueWaitTimeout bounds the wait for a scheduler slot. Zero falls back
	// to scheduler.queue_wait_timeout.
	QueueWaitTimeout time.Duration `yaml:"queue_wait_timeout,omitempty" mapstructure:"queue_wait_timeout"`
}

// For returns the settings of the given operation.
func (o OperationsConfig) For(kind constants.OperationKind) OperationConfig {
	switch kind {
	case constants.OperationDecompile:
		return o.Decompile
	case constants.OperationCompile:
		return o.Compile
	case constants.OperationSign:
		return o.Sign
	}
	return OperationConfig{}
}

// SigningConfig feeds the signing placeholders of the sign template.
type SigningConfig struct {
	Keystore     string `yaml:"keystore" mapstructure:"keystore"`
	KeystorePass string `yaml:"keystore_pass,omitempty" mapstructure:"keystore_pass"`
	KeyAlias     string `yaml:"key_alias" mapstructure:"key_alias"`
}

// SchedulerConfig bounds concurrent toolchain work.
type SchedulerConfig struct {
	MaxConcurrentInvocations int           `yaml:"max_concurrent_invocations" mapstructure:"max_concurrent_invocations"`
	QueueWaitTimeout         time.Duration `yaml:"queue_wait_timeout" mapstructure:"queue_wait_timeout"`
}

// RetryConfig controls automatic retries of IO and timeout failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff" mapstructure:"backoff"`
}

// Store backends.
const (
	StoreBackendFile   = "file"
	StoreBackendSQLite = "sqlite"
)

// StoreConfig selects the project store backend.
type StoreConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`

	// SQLitePath is the database file. Empty means <home>/projects.db.
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ProjectConfig constrains uploads.
type ProjectConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}
