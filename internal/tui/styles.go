// Package tui styles text output for terminals.
//
// Colors use AdaptiveColor for light and dark terminals. NO_COLOR and
// TERM=dumb disable them.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/serkac1000/apk-needfix/internal/constants"
)

//nolint:gochecknoglobals // Package-level palette
var (
	// ColorPrimary is blue, used for in-progress statuses.
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}

	// ColorSuccess is green, used for signed projects.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}

	// ColorWarning is yellow, used for simulated results.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}

	// ColorError is red.
	ColorError = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	// ColorMuted is gray.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	// StyleBold applies bold formatting.
	StyleBold = lipgloss.NewStyle().Bold(true)
)

// StatusColors maps every project status to its color.
func StatusColors() map[constants.ProjectStatus]lipgloss.AdaptiveColor {
	return map[constants.ProjectStatus]lipgloss.AdaptiveColor{
		constants.ProjectStatusCreated:     ColorMuted,
		constants.ProjectStatusUploaded:    ColorMuted,
		constants.ProjectStatusDecompiling: ColorPrimary,
		constants.ProjectStatusDecompiled:  ColorPrimary,
		constants.ProjectStatusCompiling:   ColorPrimary,
		constants.ProjectStatusCompiled:    ColorPrimary,
		constants.ProjectStatusSigning:     ColorPrimary,
		constants.ProjectStatusSigned:      ColorSuccess,
		constants.ProjectStatusFailed:      ColorError,
	}
}

// StatusIcon returns the symbol shown next to a status.
func StatusIcon(status constants.ProjectStatus) string {
	switch {
	case status == constants.ProjectStatusSigned:
		return "✓"
	case status == constants.ProjectStatusFailed:
		return "✗"
	case status.IsTransient():
		return "⟳"
	case status == constants.ProjectStatusCreated, status == constants.ProjectStatusUploaded:
		return "○"
	case status == constants.ProjectStatusDecompiled, status == constants.ProjectStatusCompiled:
		return "●"
	default:
		return "?"
	}
}

// RenderStatus renders label in the color of status, prefixed by its icon.
// Without color support the icon and label are returned plain.
func RenderStatus(status constants.ProjectStatus, label string) string {
	text := StatusIcon(status) + " " + label
	if !HasColorSupport() {
		return text
	}
	color, ok := StatusColors()[status]
	if !ok {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}

// CheckNoColor drops lipgloss to plain ASCII when colors are disabled.
// Call it once before rendering.
func CheckNoColor() {
	if !HasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// HasColorSupport reports false when NO_COLOR is present (any value, even
// empty) or TERM=dumb. See https://no-color.org/.
func HasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}
