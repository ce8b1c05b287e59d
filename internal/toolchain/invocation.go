package toolchain

import (
	"strings"
	"time"

	"github.com/serkac1000/apk-needfix/internal/config"
	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/logging"
)

// Invocation is one external command to run. It is built per call and never persisted.
type Invocation struct {
	Command string
	Args    []string
	Dir     string
	Timeout time.Duration

	// Env is appended to the parent environment.
	Env []string
}

// String renders the command line with secrets redacted, for logs and results.
func (i Invocation) String() string {
	parts := append([]string{i.Command}, logging.RedactArgs(i.Args)...)
	return strings.Join(parts, " ")
}

// Vars are the values substituted into argument templates.
type Vars struct {
	Source       string
	Dir          string
	Artifact     string
	Keystore     string
	KeystorePass string
	KeyAlias     string
}

// Template is an argument list containing placeholders such as {src}.
type Template []string

// Render substitutes placeholders in every argument. Unknown placeholders
// are left as they are.
func (t Template) Render(vars Vars) []string {
	r := strings.NewReplacer(
		constants.PlaceholderSource, vars.Source,
		constants.PlaceholderDir, vars.Dir,
		constants.PlaceholderArtifact, vars.Artifact,
		constants.PlaceholderKeystorePass, vars.KeystorePass,
		constants.PlaceholderKeystore, vars.Keystore,
		constants.PlaceholderKeyAlias, vars.KeyAlias,
	)
	out := make([]string, len(t))
	for i, arg := range t {
		out[i] = r.Replace(arg)
	}
	return out
}

// NewInvocation builds the invocation of one operation from its resolved
// command and configured template. An unavailable command keeps its
// configured name so that running it reports NotFound.
func NewInvocation(cmd config.ToolCommand, op config.OperationConfig, vars Vars, dir string) Invocation {
	command := cmd.Path
	if command == "" {
		command = cmd.Name
	}
	args := append(append([]string(nil), cmd.Prefix...), Template(op.Args).Render(vars)...)
	return Invocation{
		Command: command,
		Args:    args,
		Dir:     dir,
		Timeout: op.Timeout,
	}
}
