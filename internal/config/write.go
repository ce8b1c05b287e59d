package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/serkac1000/apk-needfix/internal/constants"
)

// Marshal renders cfg as YAML. Durations are written as strings so the file
// reads the way users edit it. The keystore password is never written; it
// belongs in APKFIX_SIGNING_KEYSTORE_PASS.
func Marshal(cfg *Config) ([]byte, error) {
	ops := map[string]any{}
	for _, kind := range constants.OperationKinds() {
		op := cfg.Toolchain.Operations.For(kind)
		entry := map[string]any{
			"args":    op.Args,
			"timeout": op.Timeout.String(),
		}
		if op.Command != "" {
			entry["command"] = op.Command
		}
		if op.QueueWaitTimeout > 0 {
			entry["queue_wait_timeout"] = op.QueueWaitTimeout.String()
		}
		ops[kind.String()] = entry
	}

	doc := map[string]any{
		"toolchain": map[string]any{
			"path":               cfg.Toolchain.Path,
			"java_path":          cfg.Toolchain.JavaPath,
			"simulation_enabled": cfg.Toolchain.SimulationEnabled,
			"max_output_bytes":   cfg.Toolchain.MaxOutputBytes,
			"kill_grace":         cfg.Toolchain.KillGrace.String(),
			"operations":         ops,
		},
		"signing": map[string]any{
			"keystore":  cfg.Signing.Keystore,
			"key_alias": cfg.Signing.KeyAlias,
		},
		"scheduler": map[string]any{
			"max_concurrent_invocations": cfg.Scheduler.MaxConcurrentInvocations,
			"queue_wait_timeout":         cfg.Scheduler.QueueWaitTimeout.String(),
		},
		"retry": map[string]any{
			"max_attempts": cfg.Retry.MaxAttempts,
			"backoff":      cfg.Retry.Backoff.String(),
		},
		"store": map[string]any{
			"backend":     cfg.Store.Backend,
			"sqlite_path": cfg.Store.SQLitePath,
		},
		"project": map[string]any{
			"max_upload_bytes": cfg.Project.MaxUploadBytes,
		},
	}
	if cfg.Home != "" {
		doc["home"] = cfg.Home
	}

	return yaml.Marshal(doc)
}

// WriteFile writes cfg to path, creating parent directories. An existing file
// is only replaced when overwrite is set.
func WriteFile(path string, cfg *Config, overwrite bool) error {
	if !overwrite && fileExists(path) {
		return fmt.Errorf("config file %s already exists: %w", path, os.ErrExist)
	}
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
