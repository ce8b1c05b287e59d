package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/serkac1000/apk-needfix/internal/constants"
)

func TestStatusColors_CoverEveryStatus(t *testing.T) {
	colors := StatusColors()
	for _, status := range []constants.ProjectStatus{
		constants.ProjectStatusCreated,
		constants.ProjectStatusUploaded,
		constants.ProjectStatusDecompiling,
		constants.ProjectStatusDecompiled,
		constants.ProjectStatusCompiling,
		constants.ProjectStatusCompiled,
		constants.ProjectStatusSigning,
		constants.ProjectStatusSigned,
		constants.ProjectStatusFailed,
	} {
		t.Run(string(status), func(t *testing.T) {
			color, ok := colors[status]
			assert.True(t, ok)
			assert.NotEmpty(t, color.Light)
			assert.NotEmpty(t, color.Dark)
			assert.NotEqual(t, "?", StatusIcon(status))
		})
	}
}

func TestStatusIcon(t *testing.T) {
	assert.Equal(t, "✓", StatusIcon(constants.ProjectStatusSigned))
	assert.Equal(t, "✗", StatusIcon(constants.ProjectStatusFailed))
	assert.Equal(t, "⟳", StatusIcon(constants.ProjectStatusCompiling))
	assert.Equal(t, "?", StatusIcon(constants.ProjectStatus("bogus")))
}

func TestHasColorSupport(t *testing.T) {
	t.Run("NO_COLOR set", func(t *testing.T) {
		t.Setenv("NO_COLOR", "")
		assert.False(t, HasColorSupport())
	})

	t.Run("dumb terminal", func(t *testing.T) {
		t.Setenv("TERM", "dumb")
		assert.False(t, HasColorSupport())
	})
}

func TestRenderStatus_PlainWithoutColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	CheckNoColor()

	assert.Equal(t, "✓ signed (simulated)", RenderStatus(constants.ProjectStatusSigned, "signed (simulated)"))
	assert.Equal(t, "✗ failed", RenderStatus(constants.ProjectStatusFailed, "failed"))
}
