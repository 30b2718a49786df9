package glow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notiglow/internal/model"
)

var (
	red  = model.RGB{R: 255}
	blue = model.RGB{B: 255}
)

func TestAggregator_ActiveSet(t *testing.T) {
	a := NewAggregator()

	a.Add(10, blue)
	a.Add(3, red)
	a.Add(12, blue)
	assert.Equal(t, []model.RGB{red, blue}, a.Active(), "ordered by oldest surviving id")

	a.Remove(10)
	assert.Equal(t, []model.RGB{red, blue}, a.Active(), "blue survives through id 12")

	a.Remove(12)
	assert.Equal(t, []model.RGB{red}, a.Active())

	a.Remove(99)
	a.Remove(3)
	assert.Empty(t, a.Active())
	assert.Equal(t, 0, a.Len())
}

func TestAggregator_SnapshotIsACopy(t *testing.T) {
	a := NewAggregator()
	a.Add(1, red)

	snap := a.Active()
	snap[0] = blue

	assert.Equal(t, []model.RGB{red}, a.Active())
}

func TestAggregator_PublishesOnlyOnChange(t *testing.T) {
	a := NewAggregator()

	var published [][]model.RGB
	a.Subscribe(func(c []model.RGB) { published = append(published, c) })

	a.Add(1, red)
	a.Add(1, blue)
	a.Add(2, red)
	a.Add(3, blue)
	a.Remove(2)
	a.Clear()

	assert.Equal(t, [][]model.RGB{
		{red},
		{red, blue},
		{},
	}, published)
}

func TestIntensityRange(t *testing.T) {
	for frame := 0; frame < 2*DefaultPeriod; frame++ {
		v := Intensity(frame, DefaultPeriod)
		assert.GreaterOrEqual(t, v, minIntensity-1e-9)
		assert.LessOrEqual(t, v, 1+1e-9)
	}
	assert.InDelta(t, 1.0, Intensity(DefaultPeriod/4, DefaultPeriod), 1e-9)
	assert.InDelta(t, minIntensity, Intensity(3*DefaultPeriod/4, DefaultPeriod), 1e-9)
}

func TestPulse(t *testing.T) {
	peak := Pulse(red, DefaultPeriod/4, DefaultPeriod)
	trough := Pulse(red, 3*DefaultPeriod/4, DefaultPeriod)

	assert.Equal(t, red, peak)
	assert.Less(t, trough.R, peak.R)
}

type stubLookup map[string]model.AppConfig

func (s stubLookup) Lookup(_ context.Context, id string) model.AppConfig {
	return s[id]
}

type stubRecorder struct {
	seen []string
}

func (r *stubRecorder) RecordKnownApps(_ context.Context, ids []string, _ time.Time) error {
	r.seen = append(r.seen, ids...)
	return nil
}

func TestBridge(t *testing.T) {
	agg := NewAggregator()
	rec := &stubRecorder{}
	b := NewBridge(stubLookup{
		"com.a": {Enabled: true, Color: red},
		"com.b": {Enabled: false, Color: blue},
	}, agg, rec, nil)

	b.OnAdded(model.Notification{ID: 1, SourceID: "com.a"})
	b.OnAdded(model.Notification{ID: 2, SourceID: "com.b"})
	require.Equal(t, []model.RGB{red}, agg.Active())
	assert.Equal(t, []string{"com.a", "com.b"}, rec.seen)

	b.OnRemoved(2)
	b.OnRemoved(1)
	assert.Empty(t, agg.Active())
}
