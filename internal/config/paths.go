package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/errors"
)

// HomeDir returns the apkfix data directory: APKFIX_HOME when set, otherwise ~/.apkfix.
func HomeDir() (string, error) {
	if home := os.Getenv(constants.EnvPrefix + "_HOME"); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(userHome, constants.AppHome), nil
}

// ResolveHome returns cfg.Home if set, otherwise HomeDir().
func ResolveHome(cfg *Config) (string, error) {
	if cfg != nil && cfg.Home != "" {
		return cfg.Home, nil
	}
	return HomeDir()
}

// GlobalConfigPath returns <home>/config.yaml.
func GlobalConfigPath(home string) string {
	return filepath.Join(home, constants.GlobalConfigName)
}

// ProjectConfigPath returns the relative path to the per-directory config file.
func ProjectConfigPath() string {
	return filepath.Join(constants.AppHome, constants.GlobalConfigName)
}

// ProjectsDir returns the directory that holds one subdirectory per project.
func ProjectsDir(home string) string {
	return filepath.Join(home, constants.ProjectsDir)
}

// LogsDir returns the directory for the rotating CLI log.
func LogsDir(home string) string {
	return filepath.Join(home, constants.LogsDir)
}

// SQLitePath returns the sqlite database location for the given config.
func SQLitePath(cfg *Config, home string) string {
	if cfg.Store.SQLitePath != "" {
		return cfg.Store.SQLitePath
	}
	return filepath.Join(home, constants.SQLiteFileName)
}

// EnsureHome creates the home and projects directories.
func EnsureHome(home string) error {
	if err := os.MkdirAll(ProjectsDir(home), 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}
	return nil
}
