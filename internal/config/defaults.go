package config

import (
	"github.com/spf13/viper"

	"github.com/serkac1000/apk-needfix/internal/constants"
)

// Default argument templates. apktool's "d" and "b" subcommands map to
// decompile and compile; "-f" lets a retry overwrite a partial tree.
//
//nolint:gochecknoglobals // Read-only templates
var (
	defaultDecompileArgs = []string{"d", constants.PlaceholderSource, "-o", constants.PlaceholderDir, "-f"}
	defaultCompileArgs   = []string{"b", constants.PlaceholderDir, "-o", constants.PlaceholderArtifact}
	defaultSignArgs      = []string{"sign", constants.PlaceholderArtifact}
)

// DefaultConfig returns the built-in configuration. The values match setDefaults.
func DefaultConfig() *Config {
	return &Config{
		Toolchain: ToolchainConfig{
			SimulationEnabled: true,
			MaxOutputBytes:    constants.DefaultMaxOutputBytes,
			KillGrace:         constants.DefaultKillGrace,
			Operations: OperationsConfig{
				Decompile: OperationConfig{
					Args:    append([]string(nil), defaultDecompileArgs...),
					Timeout: constants.DefaultDecompileTimeout,
				},
				Compile: OperationConfig{
					Args:    append([]string(nil), defaultCompileArgs...),
					Timeout: constants.DefaultCompileTimeout,
				},
				Sign: OperationConfig{
					Args:    append([]string(nil), defaultSignArgs...),
					Timeout: constants.DefaultSignTimeout,
				},
			},
		},
		Scheduler: SchedulerConfig{
			MaxConcurrentInvocations: constants.DefaultMaxConcurrentInvocations,
			QueueWaitTimeout:         constants.DefaultQueueWaitTimeout,
		},
		Retry: RetryConfig{
			MaxAttempts: constants.MaxRetryAttempts,
			Backoff:     constants.InitialBackoff,
		},
		Store: StoreConfig{
			Backend: StoreBackendFile,
		},
		Project: ProjectConfig{
			MaxUploadBytes: constants.DefaultMaxUploadBytes,
		},
	}
}

// setDefaults registers every key with viper so AutomaticEnv can override it.
// Keys must match the mapstructure tags exactly.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("home", "")

	v.SetDefault("toolchain.path", "")
	v.SetDefault("toolchain.java_path", "")
	v.SetDefault("toolchain.simulation_enabled", d.Toolchain.SimulationEnabled)
	v.SetDefault("toolchain.max_output_bytes", d.Toolchain.MaxOutputBytes)
	v.SetDefault("toolchain.kill_grace", d.Toolchain.KillGrace.String())
	for _, kind := range constants.OperationKinds() {
		op := d.Toolchain.Operations.For(kind)
		prefix := "toolchain.operations." + kind.String()
		v.SetDefault(prefix+".command", "")
		v.SetDefault(prefix+".args", op.Args)
		v.SetDefault(prefix+".timeout", op.Timeout.String())
		v.SetDefault(prefix+".queue_wait_timeout", op.QueueWaitTimeout.String())
	}

	v.SetDefault("signing.keystore", "")
	v.SetDefault("signing.keystore_pass", "")
	v.SetDefault("signing.key_alias", "")

	v.SetDefault("scheduler.max_concurrent_invocations", d.Scheduler.MaxConcurrentInvocations)
	v.SetDefault("scheduler.queue_wait_timeout", d.Scheduler.QueueWaitTimeout.String())

	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.backoff", d.Retry.Backoff.String())

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.sqlite_path", "")

	v.SetDefault("project.max_upload_bytes", d.Project.MaxUploadBytes)
}
