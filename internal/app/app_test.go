package app

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notiglow/internal/glow"
	"github.com/nhle/notiglow/internal/model"
	"github.com/nhle/notiglow/internal/ui/history"
)

type fakeController struct {
	mu         sync.Mutex
	monitoring bool
	access     bool
	triggers   int
	startErr   error
}

func (f *fakeController) StartMonitoring(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.monitoring = true
	return nil
}

func (f *fakeController) StopMonitoring() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monitoring = false
}

func (f *fakeController) IsMonitoring() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.monitoring
}

func (f *fakeController) Trigger() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers++
}

func (f *fakeController) RefreshAccess() bool    { return f.access }
func (f *fakeController) HasAccess() bool        { return f.access }
func (f *fakeController) SessionEventCount() int { return 0 }
func (f *fakeController) LastEventAt() time.Time { return time.Time{} }

type fixedLookup struct {
	cfg model.AppConfig
}

func (l fixedLookup) Lookup(context.Context, string) model.AppConfig { return l.cfg }

func newTestModel(t *testing.T) (Model, *fakeController, *glow.Aggregator, *EventSink) {
	t.Helper()
	ctrl := &fakeController{access: true}
	agg := glow.NewAggregator()
	sink := NewEventSink(fixedLookup{cfg: model.AppConfig{Enabled: true, Color: model.RGB{R: 255}}}, nil)
	m := New(ctrl, agg, sink, model.DisplayConfig{FrameMs: 10, History: 3})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), ctrl, agg, sink
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModel_NotLoadingAfterResize(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	assert.NotEqual(t, "Loading...", m.View())
	assert.Contains(t, m.View(), "notiglow")
}

func TestModel_AddedAndRemovedEventsEnterHistory(t *testing.T) {
	m, _, _, _ := newTestModel(t)

	m = update(t, m, NotificationAddedMsg{
		Notification: model.Notification{ID: 7, SourceID: "com.tinyspeck.slackmacgap", Title: "Alice"},
		Config:       model.AppConfig{Enabled: true, Color: model.RGB{R: 10}},
		At:           time.Now(),
	})
	m = update(t, m, NotificationRemovedMsg{ID: 7, At: time.Now()})

	entries := m.History().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, history.KindRemoved, entries[0].Kind)
	assert.Equal(t, "Alice", entries[0].Label)
	assert.Equal(t, history.KindAdded, entries[1].Kind)
	require.NotNil(t, entries[1].Color)
	assert.Equal(t, model.RGB{R: 10}, *entries[1].Color)
}

func TestModel_DisabledAppHasNoSwatch(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m = update(t, m, NotificationAddedMsg{
		Notification: model.Notification{ID: 1, SourceID: "com.apple.mail"},
		Config:       model.AppConfig{Enabled: false},
	})
	require.Len(t, m.History().Entries(), 1)
	assert.Nil(t, m.History().Entries()[0].Color)
}

func TestModel_HistoryIsCapped(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	for i := int64(1); i <= 5; i++ {
		m = update(t, m, NotificationAddedMsg{Notification: model.Notification{ID: i, SourceID: "a"}})
	}
	entries := m.History().Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, int64(5), entries[0].ID)
}

func TestModel_ActiveColorsUpdateStrip(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	colors := []model.RGB{{R: 1}, {G: 2}}
	m = update(t, m, ActiveColorsMsg{Colors: colors})
	assert.Equal(t, colors, m.Strip().Colors())
}

func TestModel_FrameAdvancesPulse(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m = update(t, m, frameMsg(time.Now()))
	m = update(t, m, frameMsg(time.Now()))
	assert.Equal(t, 2, m.Strip().Frame())
}

func TestModel_AccessChange(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m = update(t, m, AccessChangedMsg{HasAccess: false, At: time.Now()})
	assert.False(t, m.HasAccess())
	assert.Contains(t, m.View(), "no access")
}

func TestModel_ToggleStopsAndClears(t *testing.T) {
	m, ctrl, agg, _ := newTestModel(t)
	ctrl.monitoring = true
	agg.Add(1, model.RGB{R: 1})
	m = update(t, m, ActiveColorsMsg{Colors: agg.Active()})

	m = update(t, m, runeKey('p'))

	assert.False(t, ctrl.IsMonitoring())
	assert.Equal(t, 0, agg.Len())
	assert.Empty(t, m.Strip().Colors())
}

func TestModel_ToggleRestartsMonitoring(t *testing.T) {
	m, ctrl, _, _ := newTestModel(t)

	_, cmd := m.Update(runeKey('p'))
	require.NotNil(t, cmd)
	msg := cmd()
	started, ok := msg.(monitoringStartedMsg)
	require.True(t, ok)
	assert.NoError(t, started.err)
	assert.True(t, ctrl.IsMonitoring())
}

func TestModel_RefreshTriggersCycle(t *testing.T) {
	m, ctrl, _, _ := newTestModel(t)
	update(t, m, runeKey('r'))
	assert.Equal(t, 1, ctrl.triggers)
}

func TestModel_HelpAndClear(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m = update(t, m, NotificationAddedMsg{Notification: model.Notification{ID: 1, SourceID: "a"}})

	m = update(t, m, runeKey('?'))
	assert.True(t, m.ShowingHelp())

	m = update(t, m, runeKey('c'))
	assert.Empty(t, m.History().Entries())
}

func TestEventSink_DeliversInOrder(t *testing.T) {
	sink := NewEventSink(fixedLookup{cfg: model.AppConfig{Enabled: true, Color: model.RGB{B: 9}}}, nil)

	sink.OnAdded(model.Notification{ID: 3, SourceID: "x"})
	sink.OnRemoved(3)
	sink.OnAccessChanged(false)
	sink.OnActiveColors([]model.RGB{{B: 9}})

	added, ok := sink.WaitForEvent()().(NotificationAddedMsg)
	require.True(t, ok)
	assert.Equal(t, int64(3), added.Notification.ID)
	assert.Equal(t, model.RGB{B: 9}, added.Config.Color)

	_, ok = sink.WaitForEvent()().(NotificationRemovedMsg)
	assert.True(t, ok)
	access, ok := sink.WaitForEvent()().(AccessChangedMsg)
	require.True(t, ok)
	assert.False(t, access.HasAccess)
	_, ok = sink.WaitForEvent()().(ActiveColorsMsg)
	assert.True(t, ok)
}

func TestEventSink_DropsWhenFull(t *testing.T) {
	sink := NewEventSink(nil, nil)
	for i := 0; i < eventBuffer+10; i++ {
		sink.OnRemoved(int64(i))
	}
	assert.Len(t, sink.ch, eventBuffer)
}
