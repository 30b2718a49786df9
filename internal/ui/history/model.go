package history

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/nhle/notiglow/internal/model"
	"github.com/nhle/notiglow/internal/theme"
)

// Event kinds shown in the history.
const (
	KindAdded   = "added"
	KindRemoved = "removed"
	KindAccess  = "access"
)

// Entry is a single row in the event history.
type Entry struct {
	Kind     string
	At       time.Time
	ID       int64
	SourceID string
	Label    string
	Color    *model.RGB
}

// FilterValue implements list.Item.
func (e Entry) FilterValue() string { return e.Label }

// Model keeps the most recent tracker events, newest first.
type Model struct {
	list     list.Model
	entries  []Entry
	capacity int
}

// New creates a history list holding at most capacity entries.
func New(capacity, width, height int) Model {
	if capacity < 1 {
		capacity = 1
	}
	l := list.New([]list.Item{}, entryDelegate{}, width, height)
	l.Title = "Recent"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:     l,
		capacity: capacity,
	}
}

// Update forwards navigation messages to the list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Push records an event at the top of the history.
func (m *Model) Push(e Entry) {
	m.entries = append([]Entry{e}, m.entries...)
	if len(m.entries) > m.capacity {
		m.entries = m.entries[:m.capacity]
	}
	m.sync()
}

// Clear empties the history.
func (m *Model) Clear() {
	m.entries = nil
	m.sync()
}

// Entries returns the recorded events, newest first.
func (m Model) Entries() []Entry {
	return m.entries
}

// LabelFor returns the label of a recorded added event, if still present.
func (m Model) LabelFor(id int64) (string, bool) {
	for _, e := range m.entries {
		if e.Kind == KindAdded && e.ID == id {
			return e.Label, true
		}
	}
	return "", false
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

// View renders the history list.
func (m Model) View() string {
	return m.list.View()
}

func (m *Model) sync() {
	items := make([]list.Item, len(m.entries))
	for i, e := range m.entries {
		items[i] = e
	}
	m.list.SetItems(items)
}

type entryDelegate struct{}

func (d entryDelegate) Height() int                             { return 1 }
func (d entryDelegate) Spacing() int                            { return 0 }
func (d entryDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a single history line.
func (d entryDelegate) Render(w io.Writer, _ list.Model, _ int, item list.Item) {
	e, ok := item.(Entry)
	if !ok {
		return
	}

	swatch := "  "
	if e.Color != nil {
		swatch = theme.SwatchStyle(*e.Color).Render("")
	}

	line := fmt.Sprintf("%s %s %s %s",
		theme.EventStyle(e.Kind).Render(e.Kind),
		swatch,
		e.Label,
		theme.DimmedStyle.Render(humanize.Time(e.At)),
	)
	fmt.Fprint(w, theme.ListItemStyle.Render(line))
}
