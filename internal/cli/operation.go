package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/serkac1000/apk-needfix/internal/constants"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
	"github.com/serkac1000/apk-needfix/internal/lifecycle"
)

// opBuild is the batch name for the full pipeline.
const opBuild = "build"

//nolint:gochecknoglobals // Read-only command help
var operationHelp = map[constants.OperationKind]string{
	constants.OperationDecompile: "Decompile the project's APK into its working directory",
	constants.OperationCompile:   "Compile the decompiled sources into an unsigned APK",
	constants.OperationSign:      "Sign the compiled APK",
}

// AddOperationCommands adds decompile, compile and sign.
func AddOperationCommands(root *cobra.Command, flags *GlobalFlags) {
	for _, kind := range constants.OperationKinds() {
		root.AddCommand(&cobra.Command{
			Use:   string(kind) + " <id>",
			Short: operationHelp[kind],
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
					outcome, err := a.manager.Run(ctx, kind, args[0])
					if err != nil {
						return err
					}
					return printOutcome(cmd.OutOrStdout(), flags.Output, outcome)
				})
			},
		})
	}
}

// AddResetCommand adds reset.
func AddResetCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(&cobra.Command{
		Use:   "reset <id>",
		Short: "Return a failed or interrupted project to its last stable status",
		Long: `Reset clears the last error of a failed project and returns it to the
status it held before the failing operation. A project left in a
*ing status by an interrupted process is returned to the status the
operation started from. Outputs missing from disk lower the target.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				outcome, err := a.manager.Reset(ctx, args[0])
				if err != nil {
					return err
				}
				return printOutcome(cmd.OutOrStdout(), flags.Output, outcome)
			})
		},
	})
}

// AddBuildCommand adds build.
func AddBuildCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(&cobra.Command{
		Use:   "build <id>",
		Short: "Run the remaining pipeline steps through sign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				outcome, err := a.manager.Build(ctx, args[0])
				if err != nil {
					return err
				}
				return printOutcome(cmd.OutOrStdout(), flags.Output, outcome)
			})
		},
	})
}

// batchResult is one project's line in the batch report.
type batchResult struct {
	ID     string                  `json:"id"`
	Status constants.ProjectStatus `json:"status,omitempty"`
	Error  *errorView              `json:"error,omitempty"`
}

// AddBatchCommand adds batch.
func AddBatchCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(&cobra.Command{
		Use:   "batch <decompile|compile|sign|build> <id>...",
		Short: "Run one operation across many projects concurrently",
		Long: `Batch starts the operation on every project at once. The global
concurrency limit still applies, so projects beyond the limit wait for a
slot (up to scheduler.queue_wait_timeout).

Examples:
  apkfix batch decompile 3f1c... 9b2f...
  apkfix batch build $(apkfix project list -o json | jq -r '.[].id')`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := args[0]
			if op != opBuild && !isOperationKind(op) {
				return apkerrors.NewExitCode2Error(fmt.Errorf("%w: %q", apkerrors.ErrUnknownOperation, op))
			}
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				results := runBatch(ctx, a.manager, op, args[1:])
				logOperationCounts(ctx, a)
				return printBatch(cmd.OutOrStdout(), flags.Output, results)
			})
		},
	})
}

func isOperationKind(op string) bool {
	for _, kind := range constants.OperationKinds() {
		if string(kind) == op {
			return true
		}
	}
	return false
}

// runBatch runs op on every id. A failure on one project never cancels the
// others. Single operations are queued on the scheduler up front; build runs
// one pipeline per project.
func runBatch(ctx context.Context, m *lifecycle.Manager, op string, ids []string) []batchResult {
	results := make([]batchResult, len(ids))
	record := func(i int, id string, outcome *lifecycle.Outcome, err error) {
		results[i] = batchResult{ID: id}
		if outcome != nil && outcome.Project != nil {
			results[i].Status = outcome.Project.Status
		}
		if err != nil {
			view := newErrorView(err)
			results[i].Error = &view
		}
	}

	if op == opBuild {
		var g errgroup.Group
		for i, id := range ids {
			g.Go(func() error {
				outcome, err := m.Build(ctx, id)
				record(i, id, outcome, err)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		pending := make([]*lifecycle.Pending, len(ids))
		for i, id := range ids {
			pending[i] = m.Start(ctx, constants.OperationKind(op), id)
		}
		for i, id := range ids {
			outcome, err := pending[i].Wait(ctx)
			record(i, id, outcome, err)
		}
	}

	stats := m.Scheduler().Stats()
	zerolog.Ctx(ctx).Debug().
		Str("operation", op).
		Int("projects", len(ids)).
		Int("capacity", stats.Capacity).
		Msg("batch finished")

	sort.SliceStable(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

// logOperationCounts logs the operations_total series gathered during the batch.
func logOperationCounts(ctx context.Context, a *app) {
	logger := zerolog.Ctx(ctx)
	families, err := a.metrics.Registry().Gather()
	if err != nil {
		logger.Debug().Err(err).Msg("failed to gather metrics")
		return
	}
	for _, mf := range families {
		if mf.GetName() != "apkfix_operations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			event := logger.Debug()
			for _, label := range m.GetLabel() {
				event = event.Str(label.GetName(), label.GetValue())
			}
			event.Float64("count", m.GetCounter().GetValue()).Msg("batch operations")
		}
	}
}

func printBatch(w io.Writer, format string, results []batchResult) error {
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}

	if format == OutputJSON {
		if err := encodeJSONIndented(w, results); err != nil {
			return err
		}
	} else {
		tw := newTable(w)
		tw.AppendHeader(table.Row{"ID", "Status", "Result"})
		for _, r := range results {
			result := "ok"
			if r.Error != nil {
				result = string(r.Error.Kind)
				if result == "" {
					result = r.Error.Message
				}
			}
			tw.AppendRow(table.Row{r.ID, r.Status, result})
		}
		tw.AppendFooter(table.Row{"", "Failed", fmt.Sprintf("%d of %d", failed, len(results))})
		tw.Render()
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d projects failed", apkerrors.ErrOperationFailed, failed, len(results))
	}
	return nil
}
