package config

import (
	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/errors"
)

// minOutputBytes keeps at least a screenful of tool output for diagnostics.
const minOutputBytes = 1024

// maxRetryAttempts bounds automatic retries.
const maxRetryAttempts = 10

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - scheduler.max_concurrent_invocations must be at least 1
//   - scheduler.queue_wait_timeout must be positive
//   - every operation needs a non-empty argument template and a positive timeout;
//     its queue_wait_timeout, when set, must not be negative
//   - toolchain.max_output_bytes must be at least 1 KiB
//   - retry.max_attempts must be between 1 and 10, retry.backoff non-negative
//   - store.backend must be "file" or "sqlite"
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateToolchainConfig(&cfg.Toolchain); err != nil {
		return err
	}
	if err := validateSchedulerConfig(&cfg.Scheduler); err != nil {
		return err
	}
	if err := validateRetryConfig(&cfg.Retry); err != nil {
		return err
	}

	switch cfg.Store.Backend {
	case StoreBackendFile, StoreBackendSQLite:
	default:
		return errors.Wrapf(errors.ErrUnknownStoreBackend, "store.backend %q", cfg.Store.Backend)
	}

	if cfg.Project.MaxUploadBytes <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"project.max_upload_bytes must be positive, got %d", cfg.Project.MaxUploadBytes)
	}

	return nil
}

func validateToolchainConfig(cfg *ToolchainConfig) error {
	if cfg.MaxOutputBytes < minOutputBytes {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"toolchain.max_output_bytes must be at least %d, got %d", minOutputBytes, cfg.MaxOutputBytes)
	}
	if cfg.KillGrace < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"toolchain.kill_grace must not be negative, got %s", cfg.KillGrace)
	}

	for _, kind := range constants.OperationKinds() {
		op := cfg.Operations.For(kind)
		if len(op.Args) == 0 {
			return errors.Wrapf(errors.ErrConfigInvalid,
				"toolchain.operations.%s.args must not be empty", kind)
		}
		if op.Timeout <= 0 {
			return errors.Wrapf(errors.ErrConfigInvalid,
				"toolchain.operations.%s.timeout must be positive, got %s", kind, op.Timeout)
		}
		if op.QueueWaitTimeout < 0 {
			return errors.Wrapf(errors.ErrConfigInvalid,
				"toolchain.operations.%s.queue_wait_timeout must not be negative, got %s", kind, op.QueueWaitTimeout)
		}
	}
	return nil
}

func validateSchedulerConfig(cfg *SchedulerConfig) error {
	if cfg.MaxConcurrentInvocations < 1 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"scheduler.max_concurrent_invocations must be at least 1, got %d", cfg.MaxConcurrentInvocations)
	}
	if cfg.QueueWaitTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"scheduler.queue_wait_timeout must be positive, got %s", cfg.QueueWaitTimeout)
	}
	return nil
}

func validateRetryConfig(cfg *RetryConfig) error {
	if cfg.MaxAttempts < 1 || cfg.MaxAttempts > maxRetryAttempts {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"retry.max_attempts must be between 1 and %d, got %d", maxRetryAttempts, cfg.MaxAttempts)
	}
	if cfg.Backoff < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"retry.backoff must not be negative, got %s", cfg.Backoff)
	}
	return nil
}
