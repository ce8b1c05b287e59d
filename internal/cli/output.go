package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
	"github.com/serkac1000/apk-needfix/internal/lifecycle"
	"github.com/serkac1000/apk-needfix/internal/tui"
)

const (
	// failureOutputLines is how much captured tool output a failure shows.
	failureOutputLines = 40

	// maxNameWidth bounds the name column of the project list, in cells.
	maxNameWidth = 32
)

// errorView is the JSON shape of a reported error.
type errorView struct {
	Kind    constants.ErrorKind     `json:"kind,omitempty"`
	Op      constants.OperationKind `json:"operation,omitempty"`
	Message string                  `json:"message"`
	Action  string                  `json:"action,omitempty"`
	Output  string                  `json:"output,omitempty"`
}

func encodeJSONIndented(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

func newErrorView(err error) errorView {
	view := errorView{Message: err.Error()}

	var opErr *domain.OperationError
	if errors.As(err, &opErr) {
		view.Kind = opErr.Kind
		view.Op = opErr.Operation
		view.Output = lastLines(opErr.Output, failureOutputLines)
	}

	message, action := apkerrors.Actionable(err)
	if message != view.Message {
		view.Action = strings.TrimSpace(message + " " + action)
	} else {
		view.Action = action
	}
	return view
}

// reportError prints err as kind, message, hint and the tail of the tool
// output. It never prints stack traces.
func reportError(w io.Writer, format string, err error) {
	view := newErrorView(err)

	if format == OutputJSON {
		_ = encodeJSONIndented(w, map[string]errorView{"error": view})
		return
	}

	if view.Kind != "" {
		_, _ = fmt.Fprintf(w, "Error [%s]: %s\n", view.Kind, view.Message)
	} else {
		_, _ = fmt.Fprintf(w, "Error: %s\n", view.Message)
	}
	if view.Action != "" {
		_, _ = fmt.Fprintf(w, "  %s\n", view.Action)
	}
	if view.Output != "" {
		_, _ = fmt.Fprintf(w, "Tool output (last %d lines):\n", failureOutputLines)
		for _, line := range strings.Split(view.Output, "\n") {
			_, _ = fmt.Fprintf(w, "  | %s\n", line)
		}
	}
}

// lastLines returns the final n lines of s without a trailing newline.
func lastLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func statusLabel(p *domain.Project) string {
	label := string(p.Status)
	if p.Simulated {
		label += " (simulated)"
	}
	return label
}

// statusCell is statusLabel, colored when w is a terminal.
func statusCell(w io.Writer, p *domain.Project) string {
	label := statusLabel(p)
	if f, ok := w.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		return label
	}
	return tui.RenderStatus(p.Status, label)
}

func operationNames(kinds []constants.OperationKind) string {
	if len(kinds) == 0 {
		return "-"
	}
	names := make([]string, len(kinds))
	for i, kind := range kinds {
		names[i] = string(kind)
	}
	return strings.Join(names, ", ")
}

// printOutcome reports the project after an operation.
func printOutcome(w io.Writer, format string, outcome *lifecycle.Outcome) error {
	if format == OutputJSON {
		return encodeJSONIndented(w, outcome)
	}

	p := outcome.Project
	tw := newTable(w)
	tw.AppendRow(table.Row{"Project", p.ID})
	tw.AppendRow(table.Row{"Name", p.Name})
	tw.AppendRow(table.Row{"Status", statusCell(w, p)})
	if r := outcome.Result; r != nil {
		tw.AppendRow(table.Row{"Command", r.Command})
		tw.AppendRow(table.Row{"Exit code", r.ExitCode})
		tw.AppendRow(table.Row{"Duration", (time.Duration(r.DurationMs) * time.Millisecond).String()})
	}
	tw.AppendRow(table.Row{"Next", operationNames(lifecycle.AllowedOperations(p))})
	tw.Render()
	return nil
}

func printProjects(w io.Writer, format string, projects []*domain.Project) error {
	if format == OutputJSON {
		if projects == nil {
			projects = []*domain.Project{}
		}
		return encodeJSONIndented(w, projects)
	}

	if len(projects) == 0 {
		_, _ = fmt.Fprintln(w, "No projects. Run 'apkfix project create <file.apk>' to create one.")
		return nil
	}

	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "Name", "Status", "Updated"})
	for _, p := range projects {
		tw.AppendRow(table.Row{p.ID, runewidth.Truncate(p.Name, maxNameWidth, "…"), statusCell(w, p), formatTime(p.UpdatedAt)})
	}
	tw.AppendFooter(table.Row{"", "", "Total", len(projects)})
	tw.Render()
	return nil
}
