package app

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notiglow/internal/glow"
	"github.com/nhle/notiglow/internal/model"
)

const eventBuffer = 256

// NotificationAddedMsg is sent when the tracker reports a new notification.
type NotificationAddedMsg struct {
	Notification model.Notification
	Config       model.AppConfig
	At           time.Time
}

// NotificationRemovedMsg is sent when a tracked notification disappears.
type NotificationRemovedMsg struct {
	ID int64
	At time.Time
}

// AccessChangedMsg is sent when readability of the database changes.
type AccessChangedMsg struct {
	HasAccess bool
	At        time.Time
}

// ActiveColorsMsg carries a new snapshot of the aggregator's active set.
type ActiveColorsMsg struct {
	Colors []model.RGB
}

// EventSink turns tracker and aggregator callbacks into Bubble Tea messages.
// Sends never block the caller; messages are dropped when the buffer is full.
type EventSink struct {
	ch     chan tea.Msg
	lookup glow.ColorLookup
	logger *slog.Logger
	now    func() time.Time
}

// NewEventSink creates a sink. lookup may be nil, in which case added
// events carry a zero AppConfig.
func NewEventSink(lookup glow.ColorLookup, logger *slog.Logger) *EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventSink{
		ch:     make(chan tea.Msg, eventBuffer),
		lookup: lookup,
		logger: logger,
		now:    time.Now,
	}
}

// OnAdded implements sync.Listener.
func (s *EventSink) OnAdded(n model.Notification) {
	var cfg model.AppConfig
	if s.lookup != nil {
		cfg = s.lookup.Lookup(context.Background(), n.SourceID)
	}
	s.send(NotificationAddedMsg{Notification: n, Config: cfg, At: s.now()})
}

// OnRemoved implements sync.Listener.
func (s *EventSink) OnRemoved(id int64) {
	s.send(NotificationRemovedMsg{ID: id, At: s.now()})
}

// OnAccessChanged implements sync.Listener.
func (s *EventSink) OnAccessChanged(hasAccess bool) {
	s.send(AccessChangedMsg{HasAccess: hasAccess, At: s.now()})
}

// OnActiveColors is an aggregator subscriber.
func (s *EventSink) OnActiveColors(colors []model.RGB) {
	s.send(ActiveColorsMsg{Colors: colors})
}

func (s *EventSink) send(msg tea.Msg) {
	select {
	case s.ch <- msg:
	default:
		s.logger.Debug("event dropped, ui not keeping up")
	}
}

// WaitForEvent returns a tea.Cmd that blocks until the next event arrives.
func (s *EventSink) WaitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-s.ch
	}
}
