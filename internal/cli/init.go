package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/serkac1000/apk-needfix/internal/config"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

// InitFlags holds flags specific to the init command.
type InitFlags struct {
	// Project writes ./.apkfix/config.yaml instead of the global file.
	Project bool
	// Force overwrites an existing file.
	Force bool
}

// AddInitCommand adds init.
func AddInitCommand(root *cobra.Command) {
	flags := &InitFlags{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Long: `Write the built-in defaults as YAML so they can be edited.

By default the file is <home>/config.yaml (home is $APKFIX_HOME or
~/.apkfix). With --project it is ./.apkfix/config.yaml, which overrides the
global file for commands run from this directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := initConfigPath(flags.Project)
			if err != nil {
				return err
			}
			if err := config.WriteFile(path, config.DefaultConfig(), flags.Force); err != nil {
				if errors.Is(err, os.ErrExist) {
					return apkerrors.NewExitCode2Error(fmt.Errorf("%w (use --force to overwrite)", err))
				}
				return err
			}
			log := GetLogger()
			log.Debug().Str("path", path).Msg("config written")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.Project, "project", false, "write ./.apkfix/config.yaml")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "overwrite an existing file")
	root.AddCommand(cmd)
}

func initConfigPath(project bool) (string, error) {
	if project {
		return config.ProjectConfigPath(), nil
	}
	home, err := config.HomeDir()
	if err != nil {
		return "", err
	}
	return config.GlobalConfigPath(home), nil
}
