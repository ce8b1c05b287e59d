package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
	"github.com/serkac1000/apk-needfix/internal/inspect"
	"github.com/serkac1000/apk-needfix/internal/lifecycle"
)

// projectView is what "project show" reports: the record plus what is on disk.
type projectView struct {
	Project    *domain.Project           `json:"project"`
	Allowed    []constants.OperationKind `json:"allowed_operations"`
	Decompiled *inspect.Summary          `json:"decompiled,omitempty"`
	Compiled   *inspect.PackageCheck     `json:"compiled,omitempty"`
	Signed     *inspect.PackageCheck     `json:"signed,omitempty"`
}

// AddProjectCommand adds the project command group.
func AddProjectCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"p"},
		Short:   "Create, list, show and delete projects",
	}

	var name string
	create := &cobra.Command{
		Use:   "create <file.apk>",
		Short: "Create a project from an APK file",
		Long: `Copy an APK into a new project and mark it uploaded.

Examples:
  apkfix project create app.apk
  apkfix project create app.apk --name "Calculator"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				outcome, err := a.manager.Create(ctx, lifecycle.CreateRequest{SourcePath: args[0], Name: name})
				if err != nil {
					return err
				}
				return printOutcome(cmd.OutOrStdout(), flags.Output, outcome)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name (defaults to the file name)")

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				projects, err := a.manager.List(ctx)
				if err != nil {
					return err
				}
				return printProjects(cmd.OutOrStdout(), flags.Output, projects)
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project's status and outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				p, err := a.manager.Status(ctx, args[0])
				if err != nil {
					return err
				}
				return printProjectView(cmd.OutOrStdout(), flags.Output, newProjectView(ctx, p))
			})
		},
	}

	var force bool
	del := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a project and its files",
		Long: `Delete a project's record and working directory.

This cannot be undone. On a terminal you are asked to confirm; use --force
to skip the prompt (required when stdin is not a terminal).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirmed, err := confirmDelete(args[0], force)
			if err != nil {
				return err
			}
			if !confirmed {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Operation canceled.")
				return nil
			}
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				if err := a.manager.Delete(ctx, args[0]); err != nil {
					return err
				}
				if flags.Output == OutputJSON {
					return encodeJSONIndented(cmd.OutOrStdout(), map[string]any{"id": args[0], "deleted": true})
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
				return nil
			})
		},
	}

	del.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	cmd.AddCommand(create, list, show, del)
	root.AddCommand(cmd)
}

// terminalCheck reports whether stdin is a terminal; replaced in tests.
//
//nolint:gochecknoglobals // Test injection of terminal detection
var terminalCheck = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
}

// confirmDelete asks before deleting unless force is set.
func confirmDelete(id string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	if !terminalCheck() {
		return false, fmt.Errorf("cannot delete project '%s': %w", id, apkerrors.ErrNonInteractiveMode)
	}

	var confirm bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete project '%s'?", id)).
				Description("Its package, decompiled sources and outputs are removed. This cannot be undone.").
				Affirmative("Yes, delete").
				Negative("No, cancel").
				Value(&confirm),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("failed to get confirmation: %w", err)
	}
	return confirm, nil
}

func newProjectView(ctx context.Context, p *domain.Project) *projectView {
	view := &projectView{Project: p, Allowed: lifecycle.AllowedOperations(p)}
	if p.WorkingDirectory == "" {
		return view
	}

	// Outputs are read-only here, and only while no operation is writing them.
	if p.Status.IsTransient() {
		return view
	}

	logger := zerolog.Ctx(ctx)
	if summary, err := inspect.Summarize(p.DecompiledDir()); err == nil {
		view.Decompiled = summary
	} else {
		logger.Debug().Err(err).Msg("failed to summarize decompiled tree")
	}
	if check, err := inspect.CheckPackage(p.CompiledArtifactPath()); err == nil {
		view.Compiled = check
	} else {
		logger.Debug().Err(err).Msg("failed to inspect compiled package")
	}
	if check, err := inspect.CheckPackage(p.SignedArtifactPath()); err == nil {
		view.Signed = check
	} else {
		logger.Debug().Err(err).Msg("failed to inspect signed package")
	}
	return view
}

func printProjectView(w io.Writer, format string, view *projectView) error {
	if format == OutputJSON {
		return encodeJSONIndented(w, view)
	}

	p := view.Project
	tw := newTable(w)
	tw.AppendRow(table.Row{"ID", p.ID})
	tw.AppendRow(table.Row{"Name", p.Name})
	tw.AppendRow(table.Row{"Status", statusCell(w, p)})
	tw.AppendRow(table.Row{"Created", formatTime(p.CreatedAt)})
	tw.AppendRow(table.Row{"Updated", formatTime(p.UpdatedAt)})
	tw.AppendRow(table.Row{"Source", p.SourceArtifactPath})
	if p.WorkingDirectory != "" {
		tw.AppendRow(table.Row{"Working dir", p.WorkingDirectory})
	}
	if d := view.Decompiled; d != nil && d.Exists {
		tw.AppendRow(table.Row{"Decompiled", fmt.Sprintf("%d files, %s (%d layouts, %d values, %d images, %d smali)",
			d.Files, d.Size(), d.Layouts, d.Values, d.Images, d.Smali)})
	}
	for _, pkg := range []struct {
		label string
		check *inspect.PackageCheck
	}{{"Compiled", view.Compiled}, {"Signed", view.Signed}} {
		if pkg.check == nil || !pkg.check.Exists {
			continue
		}
		tw.AppendRow(table.Row{pkg.label, fmt.Sprintf("%s, %d entries, signed=%t", pkg.check.Size(), pkg.check.Entries, pkg.check.Signed)})
	}
	if e := p.LastError; e != nil {
		tw.AppendRow(table.Row{"Last error", fmt.Sprintf("%s during %s: %s", e.Kind, e.Operation, e.Message)})
	}
	tw.AppendRow(table.Row{"Allowed", operationNames(view.Allowed)})
	tw.Render()

	if len(p.Transitions) > 0 {
		history := newTable(w)
		history.AppendHeader(table.Row{"When", "From", "To", "Reason"})
		for _, tr := range p.Transitions {
			history.AppendRow(table.Row{formatTime(tr.Timestamp), tr.FromStatus, tr.ToStatus, tr.Reason})
		}
		history.Render()
	}
	return nil
}
