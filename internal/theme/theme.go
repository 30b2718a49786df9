package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notiglow/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the application title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps the glow strip and help panels.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for rows in the event history.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// DimmedStyle renders secondary text such as timestamps.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// SwatchStyle returns a two-cell block painted with the given color.
func SwatchStyle(c model.RGB) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(c.Hex())).
		Width(2)
}

// AccessStyle returns the style used for the access indicator.
func AccessStyle(hasAccess bool) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	if hasAccess {
		return base.Foreground(ColorGreen)
	}
	return base.Foreground(ColorRed)
}

// EventStyle returns a color-coded style for an event kind label.
func EventStyle(kind string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Width(8)

	switch kind {
	case "added":
		return base.Foreground(ColorGreen)
	case "removed":
		return base.Foreground(ColorYellow)
	case "access":
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}
