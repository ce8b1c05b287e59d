// Package logging provides zerolog helpers that keep signing secrets out of
// console output and log files. Keystore passwords reach the process through
// configuration and toolchain argument templates, so every command line and
// captured tool output is passed through these filters before it is logged.
package logging

import (
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// RedactedValue is the replacement string for sensitive data.
const RedactedValue = "[REDACTED]"

// sensitivePatterns match secrets as they appear in signer command lines and
// key=value text.
var sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // Package-level patterns for reuse
	// apksigner password sources: pass:<secret>
	regexp.MustCompile(`\bpass:[^\s"']+`),

	// jarsigner / keytool flags followed by the secret
	regexp.MustCompile(`(?i)-(storepass|keypass)\s+[^\s"']+`),

	// key=value and key: value forms
	regexp.MustCompile(`(?i)(keystore[_-]?pass(word)?|key[_-]?pass(word)?|password|passwd|secret)\s*[:=]\s*["']?[^\s"']+["']?`),

	// PEM private keys
	regexp.MustCompile(`-----BEGIN[A-Z\s]+PRIVATE KEY-----`),
}

// secretFlags are command-line flags whose following argument is a secret.
var secretFlags = map[string]struct{}{ //nolint:gochecknoglobals // Read-only lookup
	"-storepass": {},
	"-keypass":   {},
}

// sensitiveFieldNames contains field names whose values are always redacted.
var sensitiveFieldNames = []string{ //nolint:gochecknoglobals // Read-only lookup
	"keystore_pass",
	"key_pass",
	"storepass",
	"keypass",
	"password",
	"passwd",
	"secret",
	"private_key",
}

// SensitiveDataHook flags log events whose message contains a secret.
// zerolog hooks cannot rewrite fields, so values must be filtered at the call
// site with FilterSensitiveValue or RedactArgs; the FilteringWriter catches
// anything that still reaches the log file.
type SensitiveDataHook struct{}

// NewSensitiveDataHook creates a new SensitiveDataHook.
func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

// Run implements zerolog.Hook.
func (h *SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// ContainsSensitiveData reports whether s matches any secret pattern.
func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// FilterSensitiveValue replaces every secret in value with [REDACTED].
func FilterSensitiveValue(value string) string {
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// RedactArgs returns a copy of a command's arguments that is safe to log.
func RedactArgs(args []string) []string {
	out := make([]string, len(args))
	redactNext := false
	for i, arg := range args {
		switch {
		case redactNext:
			out[i] = RedactedValue
			redactNext = false
		case isSecretFlag(arg):
			out[i] = arg
			redactNext = true
		default:
			out[i] = FilterSensitiveValue(arg)
		}
	}
	return out
}

func isSecretFlag(arg string) bool {
	_, ok := secretFlags[strings.ToLower(arg)]
	return ok
}

// IsSensitiveFieldName reports whether a field name indicates sensitive data.
func IsSensitiveFieldName(fieldName string) bool {
	lowerName := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFieldNames {
		if strings.Contains(lowerName, sensitive) {
			return true
		}
	}
	return false
}

// SafeValue returns [REDACTED] for sensitive field names and a filtered value otherwise.
//
//	log.Debug().Str("keystore", logging.SafeValue("keystore", cfg.Keystore)).Msg("signing")
func SafeValue(fieldName, value string) string {
	if IsSensitiveFieldName(fieldName) {
		return RedactedValue
	}
	return FilterSensitiveValue(value)
}

// FilteringWriter wraps an io.Writer and filters secrets from everything
// written through it. The CLI wraps its rotating log file with one.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter creates a new FilteringWriter around w.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer. It reports the original length so callers do
// not treat redaction as a short write.
func (fw *FilteringWriter) Write(p []byte) (n int, err error) {
	filtered := FilterSensitiveValue(string(p))
	if _, err = fw.w.Write([]byte(filtered)); err != nil {
		return 0, err
	}
	return len(p), nil
}
