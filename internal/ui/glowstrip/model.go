package glowstrip

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notiglow/internal/glow"
	"github.com/nhle/notiglow/internal/model"
	"github.com/nhle/notiglow/internal/theme"
)

// Model renders the active color set as a pulsing band.
type Model struct {
	colors []model.RGB
	frame  int
	period int
	width  int
}

// New creates a glow strip of the given width.
func New(width int) Model {
	return Model{
		period: glow.DefaultPeriod,
		width:  width,
	}
}

// SetColors replaces the active set shown by the strip.
func (m *Model) SetColors(colors []model.RGB) {
	m.colors = colors
}

// Colors returns the active set currently shown.
func (m Model) Colors() []model.RGB {
	return m.colors
}

// Advance moves the pulse animation one frame forward.
func (m *Model) Advance() {
	m.frame++
	if m.period > 0 && m.frame >= m.period {
		m.frame = 0
	}
}

// Frame returns the current animation frame.
func (m Model) Frame() int {
	return m.frame
}

// SetSize updates the strip width.
func (m *Model) SetSize(width int) {
	m.width = width
}

// View renders one segment per active color, splitting the width evenly.
func (m Model) View() string {
	inner := m.width - 4
	if inner < 1 {
		inner = 1
	}

	if len(m.colors) == 0 {
		idle := theme.DimmedStyle.
			Width(inner).
			Align(lipgloss.Center).
			Render("no active notifications")
		return theme.PanelStyle.Render(idle)
	}

	segment := inner / len(m.colors)
	if segment < 1 {
		segment = 1
	}

	var b strings.Builder
	used := 0
	for i, c := range m.colors {
		w := segment
		if i == len(m.colors)-1 && inner-used > w {
			w = inner - used
		}
		if used+w > inner {
			break
		}
		lit := glow.Pulse(c, m.frame, m.period)
		b.WriteString(lipgloss.NewStyle().
			Background(lipgloss.Color(lit.Hex())).
			Render(strings.Repeat(" ", w)))
		used += w
	}

	return theme.PanelStyle.Render(b.String())
}
