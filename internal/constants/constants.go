// Package constants provides centralized constant values used throughout apkfix.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by apkfix for organizing data.
const (
	// AppHome is the hidden directory name where apkfix stores all its data.
	// This directory is created in the user's home directory.
	AppHome = ".apkfix"

	// ProjectsDir is the directory under the home where projects live.
	ProjectsDir = "projects"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// WorkDir is the per-project working directory holding every toolchain output.
	WorkDir = "work"

	// DecompiledDir is the directory under WorkDir that receives decompiled contents.
	DecompiledDir = "decompiled"

	// DistDir is the directory under WorkDir that receives built and signed packages.
	DistDir = "dist"
)

// File names used inside a project directory.
const (
	// ProjectFileName is the JSON document holding project state.
	ProjectFileName = "project.json"

	// SourceArtifactName is the copy of the uploaded package.
	SourceArtifactName = "original.apk"

	// CompiledArtifactName is the output of the compile operation.
	CompiledArtifactName = "compiled.apk"

	// SignedArtifactName is the output of the sign operation.
	SignedArtifactName = "signed.apk"

	// PackageExtension is the only accepted upload extension.
	PackageExtension = ".apk"
)

// Log and configuration file names.
const (
	// CLILogFileName is the name of the global CLI log file.
	// This file is located in ~/.apkfix/logs/apkfix.log
	CLILogFileName = "apkfix.log"

	// GlobalConfigName is the name of the configuration file under the home directory.
	GlobalConfigName = "config.yaml"

	// SQLiteFileName is the default database name for the sqlite store backend.
	SQLiteFileName = "projects.db"

	// EnvPrefix is the environment variable prefix recognized by configuration.
	EnvPrefix = "APKFIX"
)

// Log rotation settings for the CLI log file.
const (
	LogMaxSizeMB  = 10
	LogMaxBackups = 3
	LogMaxAgeDays = 14
	LogCompress   = true
)

// Operation timeouts. Compile and sign spin up a JVM and usually need more time.
const (
	DefaultDecompileTimeout = 5 * time.Minute
	DefaultCompileTimeout   = 10 * time.Minute
	DefaultSignTimeout      = 5 * time.Minute

	// DefaultQueueWaitTimeout bounds how long an operation waits for a global slot.
	DefaultQueueWaitTimeout = 2 * time.Minute

	// DefaultKillGrace is the delay between SIGTERM and SIGKILL when a tool is terminated.
	DefaultKillGrace = 2 * time.Second
)

// Scheduling and capture limits.
const (
	// DefaultMaxConcurrentInvocations is the system-wide ceiling on running toolchain processes.
	DefaultMaxConcurrentInvocations = 2

	// DefaultMaxOutputBytes caps captured stdout and stderr, each.
	DefaultMaxOutputBytes = 1 << 20

	// DefaultMaxUploadBytes is the largest package accepted by project creation.
	DefaultMaxUploadBytes = 100 << 20
)

// Retry configuration defaults for recoverable operation failures.
const (
	// MaxRetryAttempts is the total number of attempts for IO and timeout failures.
	MaxRetryAttempts = 2

	// InitialBackoff is the pause before the second attempt.
	InitialBackoff = 1 * time.Second
)

// Schema version constants for data migration support.
const (
	// ProjectSchemaVersion is the current schema version for project JSON files.
	ProjectSchemaVersion = 1
)

// DefaultToolchainCandidates are probed in order when no toolchain path is configured.
//
//nolint:gochecknoglobals // Read-only search list
var DefaultToolchainCandidates = []string{
	"apktool",
	"apktool.jar",
	"/usr/local/bin/apktool",
	"/usr/bin/apktool",
	"./tools/apktool.jar",
}
