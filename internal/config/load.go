package config

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/errors"
)

// newViperInstance creates a viper instance with defaults, the APKFIX_ env
// prefix and a "." to "_" key replacer.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from all available sources with proper precedence
// (highest first):
//  1. Environment variables (APKFIX_* prefix)
//  2. Project config (./.apkfix/config.yaml)
//  3. Global config (<home>/config.yaml)
//  4. Built-in defaults
//
// Missing files are not an error.
func Load(ctx context.Context) (*Config, error) {
	globalPath := ""
	if home, err := HomeDir(); err == nil {
		globalPath = GlobalConfigPath(home)
	}
	return LoadFromPaths(ctx, ProjectConfigPath(), globalPath)
}

// LoadFromPaths loads configuration from explicit file paths. Either path may
// be empty or point at a file that does not exist.
func LoadFromPaths(ctx context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" && fileExists(globalConfigPath) {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" && fileExists(projectConfigPath) {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Str("toolchain.path", cfg.Toolchain.Path).
		Bool("toolchain.simulation_enabled", cfg.Toolchain.SimulationEnabled).
		Int("scheduler.max_concurrent_invocations", cfg.Scheduler.MaxConcurrentInvocations).
		Dur("scheduler.queue_wait_timeout", cfg.Scheduler.QueueWaitTimeout).
		Str("store.backend", cfg.Store.Backend).
		Msg("configuration loaded")

	return cfg, nil
}

// unmarshalAndValidate unmarshals viper config into Config and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// viperDecoderOption decodes duration strings into time.Duration fields and
// comma-separated env values into argument slices.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}

func isConfigNotFoundError(err error) bool {
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
