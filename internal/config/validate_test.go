package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"defaults are valid", func(*Config) {}, nil},
		{"zero slots", func(c *Config) { c.Scheduler.MaxConcurrentInvocations = 0 }, apkerrors.ErrConfigInvalid},
		{"zero queue wait", func(c *Config) { c.Scheduler.QueueWaitTimeout = 0 }, apkerrors.ErrConfigInvalid},
		{"tiny output cap", func(c *Config) { c.Toolchain.MaxOutputBytes = 10 }, apkerrors.ErrConfigInvalid},
		{"empty args", func(c *Config) { c.Toolchain.Operations.Sign.Args = nil }, apkerrors.ErrConfigInvalid},
		{"zero timeout", func(c *Config) { c.Toolchain.Operations.Compile.Timeout = 0 }, apkerrors.ErrConfigInvalid},
		{"negative op queue wait", func(c *Config) { c.Toolchain.Operations.Sign.QueueWaitTimeout = -1 }, apkerrors.ErrConfigInvalid},
		{"negative grace", func(c *Config) { c.Toolchain.KillGrace = -1 }, apkerrors.ErrConfigInvalid},
		{"no attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, apkerrors.ErrConfigInvalid},
		{"too many attempts", func(c *Config) { c.Retry.MaxAttempts = 11 }, apkerrors.ErrConfigInvalid},
		{"negative backoff", func(c *Config) { c.Retry.Backoff = -1 }, apkerrors.ErrConfigInvalid},
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }, apkerrors.ErrUnknownStoreBackend},
		{"sqlite backend", func(c *Config) { c.Store.Backend = StoreBackendSQLite }, nil},
		{"zero upload", func(c *Config) { c.Project.MaxUploadBytes = 0 }, apkerrors.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), apkerrors.ErrConfigNil)
}
