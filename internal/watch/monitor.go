package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultPollInterval is the fallback fingerprint polling period.
	DefaultPollInterval = 2 * time.Second

	// DefaultCoalesce is how long filesystem events are gathered before a
	// single check runs.
	DefaultCoalesce = 500 * time.Millisecond
)

// Monitor watches a SQLite database file and its write-ahead log and
// reports "something may have changed". It combines a directory-level
// filesystem event stream with a polling timer, because the event stream
// can miss WAL updates; both triggers funnel into CheckForChanges.
//
// States are Stopped and Running. Start while running and Stop while
// stopped are no-ops.
type Monitor struct {
	path     string
	interval time.Duration
	coalesce time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	running  bool
	onChange func()
	stopCh   chan struct{}
	done     chan struct{}

	checkMu sync.Mutex
	last    Fingerprint
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithCoalesce overrides DefaultCoalesce.
func WithCoalesce(d time.Duration) Option {
	return func(m *Monitor) {
		if d >= 0 {
			m.coalesce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// New creates a stopped Monitor for the database at path.
func New(path string, opts ...Option) *Monitor {
	m := &Monitor{
		path:     path,
		interval: DefaultPollInterval,
		coalesce: DefaultCoalesce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the watched database file.
func (m *Monitor) Path() string {
	return m.path
}

// CanAccess reports whether the database file can be opened for reading.
// It is independent of the running state.
func (m *Monitor) CanAccess() bool {
	f, err := os.Open(m.path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// IsRunning reports whether the monitor is started.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Start records the current fingerprint as the baseline and begins
// watching. onChange is called from the monitor's goroutine; it must not
// block for long and must not call Stop.
func (m *Monitor) Start(onChange func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	m.checkMu.Lock()
	m.last = ReadFingerprint(m.path)
	m.checkMu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Warn("filesystem events unavailable, polling only", "error", err)
		watcher = nil
	} else if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		m.logger.Warn("cannot watch directory, polling only",
			"dir", filepath.Dir(m.path),
			"error", err,
		)
		watcher.Close()
		watcher = nil
	}

	m.onChange = onChange
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true

	go m.loop(watcher, m.stopCh, m.done)

	m.logger.Debug("monitor started",
		"path", m.path,
		"poll_interval", m.interval,
		"events", watcher != nil,
	)
	return nil
}

// Stop cancels the event stream and the timer. No callback fires after
// Stop returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	done := m.done
	m.mu.Unlock()

	<-done
	m.logger.Debug("monitor stopped", "path", m.path)
}

// CheckForChanges recomputes the fingerprint and reports whether it
// strictly advanced past the last stored one. Only then is the stored
// fingerprint replaced and, if the monitor is running, the change
// callback invoked.
func (m *Monitor) CheckForChanges() bool {
	m.checkMu.Lock()
	fp := ReadFingerprint(m.path)
	changed := fp.Newer(m.last)
	if changed {
		m.last = fp
	}
	m.checkMu.Unlock()

	if !changed {
		return false
	}

	m.mu.Lock()
	cb := m.onChange
	running := m.running
	m.mu.Unlock()

	if running && cb != nil {
		cb()
	}
	return true
}

// loop runs until stop is closed. Events for the database or its WAL
// start a coalescing window; the check runs when the window closes.
func (m *Monitor) loop(w *fsnotify.Watcher, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var (
		events  <-chan fsnotify.Event
		errs    <-chan error
		window  *time.Timer
		windowC <-chan time.Time
	)
	if w != nil {
		defer w.Close()
		events = w.Events
		errs = w.Errors
	}
	defer func() {
		if window != nil {
			window.Stop()
		}
	}()

	for {
		select {
		case <-stop:
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !m.relevant(ev.Name) {
				continue
			}
			if windowC == nil {
				window = time.NewTimer(m.coalesce)
				windowC = window.C
			}

		case <-windowC:
			window, windowC = nil, nil
			m.CheckForChanges()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			m.logger.Warn("filesystem watch error", "error", err)

		case <-ticker.C:
			m.CheckForChanges()
		}
	}
}

// relevant reports whether an event path is the database or its WAL.
func (m *Monitor) relevant(name string) bool {
	switch filepath.Base(name) {
	case filepath.Base(m.path), filepath.Base(WALPath(m.path)):
		return true
	}
	return false
}
