package errors_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		require.NoError(t, apkerrors.Wrap(nil, "context"))
		require.NoError(t, apkerrors.Wrapf(nil, "context %d", 1))
	})

	t.Run("preserves chain", func(t *testing.T) {
		err := apkerrors.Wrap(apkerrors.ErrProjectBusy, "decompile p1")
		require.ErrorIs(t, err, apkerrors.ErrProjectBusy)
		assert.Equal(t, "decompile p1: project busy", err.Error())
	})

	t.Run("formats message", func(t *testing.T) {
		err := apkerrors.Wrapf(apkerrors.ErrProjectNotFound, "load %s", "abc")
		require.ErrorIs(t, err, apkerrors.ErrProjectNotFound)
		assert.Equal(t, "load abc: project not found", err.Error())
	})
}

func TestIOf(t *testing.T) {
	require.NoError(t, apkerrors.IOf(nil, "mkdir"))

	err := apkerrors.IOf(fs.ErrPermission, "create %s", "/tmp/x")
	require.ErrorIs(t, err, apkerrors.ErrIO)
	require.ErrorIs(t, err, fs.ErrPermission)
	assert.Contains(t, err.Error(), "create /tmp/x")
}

func TestActionable_Messages(t *testing.T) {
	wrapped := fmt.Errorf("compile: %w", apkerrors.ErrToolTimeout)
	msg, _ := apkerrors.Actionable(wrapped)
	assert.Equal(t, "The toolchain did not finish within its timeout and was terminated.", msg)

	plain := errors.New("something odd")
	msg, action := apkerrors.Actionable(plain)
	assert.Equal(t, "something odd", msg)
	assert.Empty(t, action)
}

func TestActionable(t *testing.T) {
	msg, action := apkerrors.Actionable(nil)
	assert.Empty(t, msg)
	assert.Empty(t, action)

	msg, action = apkerrors.Actionable(apkerrors.Wrap(apkerrors.ErrToolNotFound, "decompile"))
	assert.Equal(t, "The apktool toolchain could not be found.", msg)
	assert.Contains(t, action, "toolchain.simulation_enabled")

	_, action = apkerrors.Actionable(apkerrors.ErrInvalidPackage)
	assert.Empty(t, action)
}

func TestExitCode2Error(t *testing.T) {
	base := apkerrors.ErrInvalidTransition
	err := apkerrors.NewExitCode2Error(base)

	assert.True(t, apkerrors.IsExitCode2Error(err))
	assert.True(t, apkerrors.IsExitCode2Error(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, apkerrors.IsExitCode2Error(base))
	require.ErrorIs(t, err, apkerrors.ErrInvalidTransition)
	assert.Equal(t, base.Error(), err.Error())
}
