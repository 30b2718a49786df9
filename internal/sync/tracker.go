package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/notiglow/internal/model"
	"github.com/nhle/notiglow/internal/source"
)

// ErrNoAccess is returned by StartMonitoring when the source database
// cannot be read. It is not fatal; call RefreshAccess and try again.
var ErrNoAccess = errors.New("no access to notification database")

// DefaultReadTimeout bounds a single check cycle.
const DefaultReadTimeout = 5 * time.Second

// ChangeSource produces "something may have changed" signals.
// *watch.Monitor implements it.
type ChangeSource interface {
	Start(onChange func()) error
	Stop()
	CanAccess() bool
}

// Listener receives the tracker's event streams. Calls are made from the
// tracker's cycle goroutine, one at a time; implementations must not call
// StopMonitoring from inside a callback.
type Listener interface {
	OnAdded(n model.Notification)
	OnRemoved(id int64)
	OnAccessChanged(hasAccess bool)
}

// ListenerFuncs adapts optional functions to a Listener.
type ListenerFuncs struct {
	Added         func(model.Notification)
	Removed       func(int64)
	AccessChanged func(bool)
}

func (f ListenerFuncs) OnAdded(n model.Notification) {
	if f.Added != nil {
		f.Added(n)
	}
}

func (f ListenerFuncs) OnRemoved(id int64) {
	if f.Removed != nil {
		f.Removed(id)
	}
}

func (f ListenerFuncs) OnAccessChanged(hasAccess bool) {
	if f.AccessChanged != nil {
		f.AccessChanged(hasAccess)
	}
}

// Listeners fans events out to several listeners in order.
type Listeners []Listener

func (ls Listeners) OnAdded(n model.Notification) {
	for _, l := range ls {
		l.OnAdded(n)
	}
}

func (ls Listeners) OnRemoved(id int64) {
	for _, l := range ls {
		l.OnRemoved(id)
	}
}

func (ls Listeners) OnAccessChanged(hasAccess bool) {
	for _, l := range ls {
		l.OnAccessChanged(hasAccess)
	}
}

// Tracker turns change signals into "added" and "removed" notification
// events. It owns the cursor and the tracked id set; both are mutated only
// inside a check cycle, and cycles never overlap.
type Tracker struct {
	reader      source.Reader
	changes     ChangeSource
	listener    Listener
	logger      *slog.Logger
	readTimeout time.Duration
	now         func() time.Time

	// cycleMu serializes check cycles.
	cycleMu gosync.Mutex

	// mu guards the fields below for concurrent getters.
	mu           gosync.Mutex
	monitoring   bool
	accessKnown  bool
	hasAccess    bool
	sessionID    string
	cursor       int64
	tracked      map[int64]struct{}
	sessionCount int
	lastEventAt  time.Time
	triggerCh    chan struct{}
	stopCh       chan struct{}
	done         chan struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// WithReadTimeout overrides DefaultReadTimeout.
func WithReadTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.readTimeout = d
		}
	}
}

// WithClock overrides the time source used for LastEventAt.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// New creates a stopped Tracker. listener may be nil.
func New(reader source.Reader, changes ChangeSource, listener Listener, opts ...Option) *Tracker {
	if listener == nil {
		listener = ListenerFuncs{}
	}
	t := &Tracker{
		reader:      reader,
		changes:     changes,
		listener:    listener,
		logger:      slog.Default(),
		readTimeout: DefaultReadTimeout,
		now:         time.Now,
		tracked:     make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartMonitoring probes access, initializes the cursor to the current
// maximum id so pre-existing rows are never reported, and starts the
// change source. It returns ErrNoAccess when the database is unreadable.
// Starting while already monitoring is a no-op.
func (t *Tracker) StartMonitoring(ctx context.Context) error {
	t.mu.Lock()
	if t.monitoring {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	if !t.probeAccess() {
		return ErrNoAccess
	}

	t.cycleMu.Lock()
	readCtx, cancel := context.WithTimeout(ctx, t.readTimeout)
	maxID, _, err := t.reader.MaxID(readCtx)
	cancel()
	if err != nil {
		t.cycleMu.Unlock()
		return fmt.Errorf("initializing cursor: %w", err)
	}

	t.mu.Lock()
	if t.monitoring {
		t.mu.Unlock()
		t.cycleMu.Unlock()
		return nil
	}
	t.sessionID = uuid.New().String()
	t.cursor = maxID
	t.tracked = make(map[int64]struct{})
	t.sessionCount = 0
	t.lastEventAt = time.Time{}
	t.triggerCh = make(chan struct{}, 1)
	t.stopCh = make(chan struct{})
	t.done = make(chan struct{})
	t.monitoring = true
	triggerCh, stopCh, done := t.triggerCh, t.stopCh, t.done
	sessionID := t.sessionID
	t.mu.Unlock()
	t.cycleMu.Unlock()

	go t.run(triggerCh, stopCh, done)

	if err := t.changes.Start(t.Trigger); err != nil {
		t.StopMonitoring()
		return fmt.Errorf("starting change monitor: %w", err)
	}

	t.logger.Info("monitoring started",
		"session", sessionID,
		"cursor", maxID,
	)
	return nil
}

// StopMonitoring stops the change source and the cycle goroutine. A cycle
// already in flight completes and its results are applied. Stopping while
// stopped is a no-op.
func (t *Tracker) StopMonitoring() {
	t.mu.Lock()
	if !t.monitoring {
		t.mu.Unlock()
		return
	}
	t.monitoring = false
	stopCh, done := t.stopCh, t.done
	sessionID := t.sessionID
	t.mu.Unlock()

	t.changes.Stop()
	close(stopCh)
	<-done

	t.logger.Info("monitoring stopped", "session", sessionID)
}

// Trigger schedules a check cycle. While a cycle is running at most one
// further cycle is queued; extra triggers coalesce. It never blocks.
func (t *Tracker) Trigger() {
	t.mu.Lock()
	ch := t.triggerCh
	monitoring := t.monitoring
	t.mu.Unlock()

	if !monitoring || ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// run is the single consumer of trigger signals.
func (t *Tracker) run(triggerCh <-chan struct{}, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stopCh:
			return
		case <-triggerCh:
			ctx, cancel := context.WithTimeout(context.Background(), t.readTimeout)
			t.Check(ctx)
			cancel()
		}
	}
}

// Check runs one cycle synchronously:
//
//  1. fetch records newer than the cursor;
//  2. emit "added" for ids not yet tracked, advancing the cursor for every
//     returned id;
//  3. if anything is tracked, emit "removed" for tracked ids that no
//     longer exist.
//
// Reader failures mean "no data this cycle": the cursor and tracked set
// are left untouched and nothing further is emitted.
func (t *Tracker) Check(ctx context.Context) {
	t.cycleMu.Lock()
	defer t.cycleMu.Unlock()

	t.mu.Lock()
	cursor := t.cursor
	t.mu.Unlock()

	fetched, err := t.reader.FetchNew(ctx, cursor)
	if err != nil {
		t.logger.Warn("fetching new notifications failed",
			"cursor", cursor,
			"error", err,
		)
		return
	}

	for _, n := range fetched {
		t.mu.Lock()
		_, seen := t.tracked[n.ID]
		if !seen {
			t.tracked[n.ID] = struct{}{}
			t.sessionCount++
			t.lastEventAt = t.now()
		}
		t.cursor = max(t.cursor, n.ID)
		t.mu.Unlock()

		if !seen {
			t.logger.Debug("notification added",
				"id", n.ID,
				"source", n.SourceID,
			)
			t.listener.OnAdded(n)
		}
	}

	ids := t.TrackedIDs()
	if len(ids) == 0 {
		return
	}

	existing, err := t.reader.FetchExistingIDs(ctx, ids)
	if err != nil {
		t.logger.Warn("checking tracked notifications failed",
			"tracked", len(ids),
			"error", err,
		)
		return
	}

	for _, id := range ids {
		if _, ok := existing[id]; ok {
			continue
		}
		t.mu.Lock()
		delete(t.tracked, id)
		t.mu.Unlock()

		t.logger.Debug("notification removed", "id", id)
		t.listener.OnRemoved(id)
	}
}

// RefreshAccess re-probes read access and notifies the listener on the
// first probe and whenever the result changes.
func (t *Tracker) RefreshAccess() bool {
	return t.probeAccess()
}

func (t *Tracker) probeAccess() bool {
	ok := t.changes.CanAccess()

	t.mu.Lock()
	changed := !t.accessKnown || ok != t.hasAccess
	t.accessKnown = true
	t.hasAccess = ok
	t.mu.Unlock()

	if changed {
		t.logger.Info("access changed", "has_access", ok)
		t.listener.OnAccessChanged(ok)
	}
	return ok
}

// IsMonitoring reports whether monitoring is active.
func (t *Tracker) IsMonitoring() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.monitoring
}

// HasAccess returns the result of the last access probe.
func (t *Tracker) HasAccess() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasAccess
}

// SessionID identifies the current (or last) monitoring session.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// SessionEventCount is the number of "added" events this session.
func (t *Tracker) SessionEventCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionCount
}

// LastEventAt is when the last "added" event was emitted, or zero.
func (t *Tracker) LastEventAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastEventAt
}

// Cursor returns the highest record id observed.
func (t *Tracker) Cursor() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor
}

// TrackedIDs returns the tracked ids in ascending order.
func (t *Tracker) TrackedIDs() []int64 {
	t.mu.Lock()
	ids := make([]int64, 0, len(t.tracked))
	for id := range t.tracked {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	slices.Sort(ids)
	return ids
}
