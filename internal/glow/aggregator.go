package glow

import (
	"slices"
	"sync"

	"github.com/nhle/notiglow/internal/model"
)

// Aggregator reduces per-notification color signals to the set of
// currently active colors. Colors are assigned per application but held
// per notification id, so a color stays active until every notification
// carrying it is gone. The active set is ordered by the oldest surviving
// notification of each color.
type Aggregator struct {
	mu          sync.Mutex
	colors      map[int64]model.RGB
	active      []model.RGB
	subscribers []func([]model.RGB)
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		colors: make(map[int64]model.RGB),
	}
}

// Subscribe registers fn to receive a snapshot every time the active set
// changes. fn is called synchronously by the mutating goroutine.
func (a *Aggregator) Subscribe(fn func([]model.RGB)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// Add marks notification id as glowing in color. Re-adding a known id is
// ignored.
func (a *Aggregator) Add(id int64, color model.RGB) {
	a.mu.Lock()
	if _, ok := a.colors[id]; ok {
		a.mu.Unlock()
		return
	}
	a.colors[id] = color
	a.publishLocked()
}

// Remove drops notification id. Unknown ids are ignored.
func (a *Aggregator) Remove(id int64) {
	a.mu.Lock()
	if _, ok := a.colors[id]; !ok {
		a.mu.Unlock()
		return
	}
	delete(a.colors, id)
	a.publishLocked()
}

// Clear drops every notification.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	clear(a.colors)
	a.publishLocked()
}

// Active returns a snapshot of the active colors.
func (a *Aggregator) Active() []model.RGB {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.active)
}

// Len returns the number of glowing notifications.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.colors)
}

// publishLocked recomputes the active set and, if it changed, notifies
// subscribers. It must be called with a.mu held and releases it.
func (a *Aggregator) publishLocked() {
	next := a.computeActive()
	if slices.Equal(next, a.active) {
		a.mu.Unlock()
		return
	}
	a.active = next
	subs := slices.Clone(a.subscribers)
	a.mu.Unlock()

	for _, fn := range subs {
		fn(slices.Clone(next))
	}
}

func (a *Aggregator) computeActive() []model.RGB {
	ids := make([]int64, 0, len(a.colors))
	for id := range a.colors {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	active := make([]model.RGB, 0, len(ids))
	for _, id := range ids {
		c := a.colors[id]
		if !slices.Contains(active, c) {
			active = append(active, c)
		}
	}
	return active
}
