package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/serkac1000/apk-needfix/internal/config"
	"github.com/serkac1000/apk-needfix/internal/constants"
)

// doctorReport is the environment as the next command would see it.
type doctorReport struct {
	Home          string             `json:"home"`
	LogFile       string             `json:"log_file,omitempty"`
	StoreBackend  string             `json:"store_backend"`
	MaxConcurrent int                `json:"max_concurrent_invocations"`
	QueueWait     string             `json:"queue_wait_timeout"`
	Capability    *config.Capability `json:"capability"`
}

// AddDoctorCommand adds doctor.
func AddDoctorCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Show the detected toolchain and effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(_ context.Context, a *app) error {
				return printDoctor(cmd.OutOrStdout(), flags.Output, newDoctorReport(a))
			})
		},
	})
}

func newDoctorReport(a *app) *doctorReport {
	logFile, _ := LogFilePath()
	backend := a.cfg.Store.Backend
	if backend == "" {
		backend = config.StoreBackendFile
	}
	return &doctorReport{
		Home:          a.home,
		LogFile:       logFile,
		StoreBackend:  backend,
		MaxConcurrent: a.cfg.Scheduler.MaxConcurrentInvocations,
		QueueWait:     a.cfg.Scheduler.QueueWaitTimeout.String(),
		Capability:    a.manager.Capability(),
	}
}

func describeCommand(cmd config.ToolCommand) string {
	if !cmd.Available {
		if cmd.Name == "" {
			return "not found"
		}
		return cmd.Name + " (not found)"
	}
	parts := append([]string{cmd.Path}, cmd.Prefix...)
	desc := strings.Join(parts, " ")
	if cmd.Version != "" {
		desc += " [" + cmd.Version + "]"
	}
	return desc
}

func printDoctor(w io.Writer, format string, report *doctorReport) error {
	if format == OutputJSON {
		return encodeJSONIndented(w, report)
	}

	c := report.Capability
	tw := newTable(w)
	tw.AppendRow(table.Row{"Home", report.Home})
	tw.AppendRow(table.Row{"Log file", report.LogFile})
	tw.AppendRow(table.Row{"Store", report.StoreBackend})
	tw.AppendRow(table.Row{"Concurrency", fmt.Sprintf("%d slots, queue wait %s", report.MaxConcurrent, report.QueueWait)})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"Toolchain", describeCommand(c.Toolchain)})
	title := cases.Title(language.English)
	for _, kind := range constants.OperationKinds() {
		tw.AppendRow(table.Row{"  " + title.String(string(kind)), describeCommand(c.Command(kind))})
	}
	tw.AppendRow(table.Row{"Simulation", fmt.Sprintf("enabled=%t", c.SimulationEnabled)})
	tw.AppendRow(table.Row{"Detected", c.DetectedAt.Local().Format(time.DateTime)})
	tw.Render()

	if !c.Toolchain.Available {
		if c.SimulationEnabled {
			_, _ = fmt.Fprintln(w, "apktool was not found; operations will produce simulated output.")
		} else {
			_, _ = fmt.Fprintln(w, "apktool was not found and simulation is disabled; operations will fail with ToolNotFound.")
		}
	}
	return nil
}
