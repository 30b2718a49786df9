package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/nhle/notiglow/internal/keys"
	"github.com/nhle/notiglow/internal/model"
	"github.com/nhle/notiglow/internal/theme"
	"github.com/nhle/notiglow/internal/ui"
	"github.com/nhle/notiglow/internal/ui/glowstrip"
	helpview "github.com/nhle/notiglow/internal/ui/help"
	"github.com/nhle/notiglow/internal/ui/history"
)

// Controller is the subset of the tracker the UI drives.
type Controller interface {
	StartMonitoring(ctx context.Context) error
	StopMonitoring()
	IsMonitoring() bool
	Trigger()
	RefreshAccess() bool
	HasAccess() bool
	SessionEventCount() int
	LastEventAt() time.Time
}

// ActiveSet is the part of the aggregator the UI resets.
type ActiveSet interface {
	Active() []model.RGB
	Clear()
}

// monitoringStartedMsg reports the outcome of StartMonitoring.
type monitoringStartedMsg struct {
	err error
}

// frameMsg advances the pulse animation.
type frameMsg time.Time

// Model is the root Bubble Tea model for the glow view.
type Model struct {
	layout   ui.Layout
	keys     *keys.KeyMap
	help     help.Model
	helpView helpview.Model
	strip    glowstrip.Model
	history  history.Model
	tracker  Controller
	active   ActiveSet
	events   *EventSink
	frame    time.Duration

	ready      bool
	showHelp   bool
	hasAccess  bool
	statusText string
}

// New creates the root model.
func New(tracker Controller, active ActiveSet, events *EventSink, display model.DisplayConfig) Model {
	k := keys.DefaultKeyMap()
	frame := time.Duration(display.FrameMs) * time.Millisecond
	if frame <= 0 {
		frame = 50 * time.Millisecond
	}

	return Model{
		keys:     k,
		help:     help.New(),
		helpView: helpview.New(k, 80, 24),
		strip:    glowstrip.New(80),
		history:  history.New(display.History, 80, 20),
		tracker:  tracker,
		active:   active,
		events:   events,
		frame:    frame,
	}
}

// Init starts monitoring, the event pump and the animation clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.startMonitoring(),
		m.events.WaitForEvent(),
		m.tick(),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.help.Width = msg.Width
		m.strip.SetSize(m.layout.ContentWidth())
		m.helpView.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		m.history.SetSize(m.layout.ContentWidth(), m.historyHeight())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameMsg:
		m.strip.Advance()
		return m, m.tick()

	case monitoringStartedMsg:
		if msg.err != nil {
			m.statusText = msg.err.Error()
		} else {
			m.statusText = ""
		}
		m.hasAccess = m.tracker.HasAccess()
		return m, nil

	case NotificationAddedMsg:
		entry := history.Entry{
			Kind:     history.KindAdded,
			At:       msg.At,
			ID:       msg.Notification.ID,
			SourceID: msg.Notification.SourceID,
			Label:    msg.Notification.Label(),
		}
		if msg.Config.Enabled {
			c := msg.Config.Color
			entry.Color = &c
		}
		m.history.Push(entry)
		return m, m.events.WaitForEvent()

	case NotificationRemovedMsg:
		label, ok := m.history.LabelFor(msg.ID)
		if !ok {
			label = fmt.Sprintf("#%d", msg.ID)
		}
		m.history.Push(history.Entry{
			Kind:  history.KindRemoved,
			At:    msg.At,
			ID:    msg.ID,
			Label: label,
		})
		return m, m.events.WaitForEvent()

	case AccessChangedMsg:
		m.hasAccess = msg.HasAccess
		label := "database readable"
		if !msg.HasAccess {
			label = "database not readable, grant Full Disk Access"
		}
		m.history.Push(history.Entry{
			Kind:  history.KindAccess,
			At:    msg.At,
			Label: label,
		})
		return m, m.events.WaitForEvent()

	case ActiveColorsMsg:
		m.strip.SetColors(msg.Colors)
		return m, m.events.WaitForEvent()
	}

	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if m.tracker.IsMonitoring() {
			m.tracker.StopMonitoring()
			m.active.Clear()
			m.strip.SetColors(nil)
			m.statusText = "paused"
			return m, nil
		}
		return m, m.startMonitoring()

	case key.Matches(msg, m.keys.Refresh):
		m.tracker.Trigger()
		return m, nil

	case key.Matches(msg, m.keys.Access):
		m.hasAccess = m.tracker.RefreshAccess()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.history.Clear()
		return m, nil
	}

	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	return m, cmd
}

// View renders the full screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("notiglow", m.monitorStatus())

	var content string
	if m.showHelp {
		content = m.helpView.View()
	} else {
		content = m.strip.View() + "\n" + m.history.View()
	}

	statusBar := m.layout.RenderStatusBar(m.statusLine())
	return m.layout.RenderWithFrame(header, content, statusBar)
}

// Strip exposes the glow strip state.
func (m Model) Strip() glowstrip.Model { return m.strip }

// History exposes the event history.
func (m Model) History() history.Model { return m.history }

// HasAccess reports the last known access state.
func (m Model) HasAccess() bool { return m.hasAccess }

// ShowingHelp reports whether the help panel is open.
func (m Model) ShowingHelp() bool { return m.showHelp }

func (m Model) startMonitoring() tea.Cmd {
	tracker := m.tracker
	active := m.active
	return func() tea.Msg {
		active.Clear()
		return monitoringStartedMsg{err: tracker.StartMonitoring(context.Background())}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) historyHeight() int {
	// Strip panel takes three rows.
	h := m.layout.ContentHeight() - 3
	if h < 1 {
		h = 1
	}
	return h
}

func (m Model) monitorStatus() string {
	switch {
	case !m.hasAccess:
		return theme.AccessStyle(false).Render("no access")
	case m.tracker.IsMonitoring():
		return theme.AccessStyle(true).Render("watching")
	default:
		return "paused"
	}
}

func (m Model) statusLine() string {
	last := "never"
	if at := m.tracker.LastEventAt(); !at.IsZero() {
		last = humanize.Time(at)
	}
	line := fmt.Sprintf("%d events, last %s | %s",
		m.tracker.SessionEventCount(), last, m.help.ShortHelpView(m.keys.ShortHelp()))
	if m.statusText != "" {
		line = m.statusText + " | " + line
	}
	return line
}
