package cli

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	"github.com/serkac1000/apk-needfix/internal/errors"
)

func TestAddGlobalFlags(t *testing.T) {
	t.Parallel()

	flags := &GlobalFlags{}
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	AddGlobalFlags(cmd, flags)

	cmd.SetArgs([]string{"-o", "json", "-v", "--metrics-addr", "127.0.0.1:0"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, OutputJSON, flags.Output)
	assert.True(t, flags.Verbose)
	assert.False(t, flags.Quiet)
	assert.Equal(t, "127.0.0.1:0", flags.MetricsAddr)
}

func TestBindGlobalFlags(t *testing.T) {
	t.Parallel()

	flags := &GlobalFlags{}
	v := viper.New()
	cmd := &cobra.Command{Use: "test"}
	AddGlobalFlags(cmd, flags)

	require.NoError(t, BindGlobalFlags(v, cmd))
	require.NoError(t, cmd.PersistentFlags().Set("output", "json"))
	require.NoError(t, cmd.PersistentFlags().Set("metrics-addr", ":9464"))

	assert.Equal(t, "json", v.GetString("output"))
	assert.Equal(t, ":9464", v.GetString("metrics-addr"))
}

func TestIsValidOutputFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format   string
		expected bool
	}{
		{OutputText, true},
		{OutputJSON, true},
		{"xml", false},
		{"", false},
		{"JSON", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, IsValidOutputFormat(tc.format), tc.format)
	}
	assert.Equal(t, []string{OutputText, OutputJSON}, ValidOutputFormats())
}

//nolint:err113 // dynamic errors simulate Cobra messages
func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{"nil", nil, ExitSuccess},
		{"invalid output format", fmt.Errorf("bad: %w", errors.ErrInvalidOutputFormat), ExitInvalidInput},
		{"exit code 2 wrapper", errors.NewExitCode2Error(stderrors.New("nope")), ExitInvalidInput},
		{
			"invalid transition",
			domain.NewOperationError(constants.OperationCompile, fmt.Errorf("%w: uploaded", errors.ErrInvalidTransition), ""),
			ExitInvalidInput,
		},
		{"invalid package", fmt.Errorf("%w: app.zip", errors.ErrInvalidPackage), ExitInvalidInput},
		{"package too large", errors.ErrPackageTooLarge, ExitInvalidInput},
		{"unknown operation", errors.ErrUnknownOperation, ExitInvalidInput},
		{"unknown flag", stderrors.New("unknown flag: --foo"), ExitInvalidInput},
		{"wrong arg count", stderrors.New("accepts 1 arg(s), received 0"), ExitInvalidInput},
		{"too few args", stderrors.New("requires at least 2 arg(s), only received 1"), ExitInvalidInput},
		{"mutually exclusive", stderrors.New("if any flags in the group [verbose quiet] are set none of the others can be"), ExitInvalidInput},
		{
			"tool failure",
			domain.NewOperationError(constants.OperationCompile, fmt.Errorf("%w: exit code 1", errors.ErrToolExitedNonZero), ""),
			ExitError,
		},
		{"busy", domain.NewOperationError(constants.OperationCompile, errors.ErrProjectBusy, ""), ExitError},
		{"not found", errors.ErrProjectNotFound, ExitError},
		{"generic", stderrors.New("something went wrong"), ExitError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expectedCode, ExitCodeForError(tc.err))
		})
	}
}
