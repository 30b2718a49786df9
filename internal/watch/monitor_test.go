package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

// newFiles creates db and db-wal with modification time at.
func newFiles(t *testing.T, at time.Time) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db")
	for _, p := range []string{path, WALPath(path)} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(p, at, at))
	}
	return path
}

func touch(t *testing.T, path string, at time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, at, at))
}

func TestFingerprint_Newer(t *testing.T) {
	prev := Fingerprint{DB: t0, WAL: t0.Add(time.Second)}

	assert.False(t, prev.Newer(prev), "equal fingerprints")
	assert.False(t, Fingerprint{DB: t0.Add(time.Second)}.Newer(prev), "equal max")
	assert.True(t, Fingerprint{DB: t0, WAL: t0.Add(2 * time.Second)}.Newer(prev))
	assert.True(t, Fingerprint{DB: t0.Add(3 * time.Second)}.Newer(prev))
	assert.False(t, Fingerprint{}.Newer(prev), "absent files")
	assert.False(t, Fingerprint{}.Newer(Fingerprint{}), "absent files with no baseline")
}

func TestCheckForChanges_Strictness(t *testing.T) {
	path := newFiles(t, t0)
	m := New(path)

	assert.True(t, m.CheckForChanges(), "first observation advances from zero")
	assert.False(t, m.CheckForChanges(), "no write in between")
	assert.False(t, m.CheckForChanges())

	touch(t, path, t0.Add(time.Second))
	assert.True(t, m.CheckForChanges())
	assert.False(t, m.CheckForChanges())

	touch(t, WALPath(path), t0.Add(time.Second))
	assert.False(t, m.CheckForChanges(), "WAL equal to stored max")

	touch(t, WALPath(path), t0.Add(2*time.Second))
	assert.True(t, m.CheckForChanges(), "WAL alone advances")

	touch(t, path, t0.Add(-time.Hour))
	assert.False(t, m.CheckForChanges(), "going backwards is not a change")
}

func TestCheckForChanges_MissingFiles(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "db"))
	assert.False(t, m.CheckForChanges())
	assert.False(t, m.CheckForChanges())
}

func TestStart_RecordsBaseline(t *testing.T) {
	path := newFiles(t, t0)
	m := New(path, WithPollInterval(time.Hour))

	var calls atomic.Int32
	require.NoError(t, m.Start(func() { calls.Add(1) }))
	defer m.Stop()

	assert.False(t, m.CheckForChanges(), "pre-existing state is not a change")
	assert.Equal(t, int32(0), calls.Load())

	touch(t, WALPath(path), t0.Add(time.Second))
	assert.True(t, m.CheckForChanges())
	assert.Equal(t, int32(1), calls.Load())
}

func TestStartStop_Idempotent(t *testing.T) {
	path := newFiles(t, t0)
	m := New(path, WithPollInterval(time.Hour))

	m.Stop()
	assert.False(t, m.IsRunning())

	var calls atomic.Int32
	require.NoError(t, m.Start(func() { calls.Add(1) }))
	require.NoError(t, m.Start(func() { calls.Add(100) }))
	assert.True(t, m.IsRunning())

	m.Stop()
	m.Stop()
	assert.False(t, m.IsRunning())

	touch(t, path, t0.Add(time.Minute))
	assert.True(t, m.CheckForChanges())
	assert.Equal(t, int32(0), calls.Load(), "no callback after Stop")
}

func TestPollingFallback(t *testing.T) {
	path := newFiles(t, t0)
	m := New(path, WithPollInterval(20*time.Millisecond), WithCoalesce(time.Hour))

	var calls atomic.Int32
	require.NoError(t, m.Start(func() { calls.Add(1) }))
	defer m.Stop()

	touch(t, WALPath(path), t0.Add(time.Second))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "unchanged fingerprint must not fire again")
}

func TestEventStream(t *testing.T) {
	path := newFiles(t, t0)
	m := New(path, WithPollInterval(time.Hour), WithCoalesce(10*time.Millisecond))

	var calls atomic.Int32
	require.NoError(t, m.Start(func() { calls.Add(1) }))
	defer m.Stop()

	require.NoError(t, os.WriteFile(WALPath(path), []byte("more"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventStream_IgnoresOtherFiles(t *testing.T) {
	path := newFiles(t, t0)
	m := New(path, WithPollInterval(time.Hour), WithCoalesce(10*time.Millisecond))

	var calls atomic.Int32
	require.NoError(t, m.Start(func() { calls.Add(1) }))
	defer m.Stop()

	other := filepath.Join(filepath.Dir(path), "unrelated")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestCanAccess(t *testing.T) {
	path := newFiles(t, t0)
	assert.True(t, New(path).CanAccess())
	assert.False(t, New(filepath.Join(t.TempDir(), "missing")).CanAccess())
}
