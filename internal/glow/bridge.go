package glow

import (
	"context"
	"log/slog"
	"time"

	"github.com/nhle/notiglow/internal/model"
)

// ColorLookup resolves an application identifier to its display config.
type ColorLookup interface {
	Lookup(ctx context.Context, sourceID string) model.AppConfig
}

// AppRecorder remembers which applications have been seen.
type AppRecorder interface {
	RecordKnownApps(ctx context.Context, bundleIDs []string, seenAt time.Time) error
}

// Bridge handles tracker events: it resolves each added notification's
// color and feeds the aggregator. It satisfies the tracker's Listener.
type Bridge struct {
	lookup   ColorLookup
	agg      *Aggregator
	recorder AppRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewBridge creates a Bridge. recorder may be nil.
func NewBridge(lookup ColorLookup, agg *Aggregator, recorder AppRecorder, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		lookup:   lookup,
		agg:      agg,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

func (b *Bridge) OnAdded(n model.Notification) {
	ctx := context.Background()

	if b.recorder != nil {
		if err := b.recorder.RecordKnownApps(ctx, []string{n.SourceID}, b.now()); err != nil {
			b.logger.Warn("recording known app failed",
				"source", n.SourceID,
				"error", err,
			)
		}
	}

	cfg := b.lookup.Lookup(ctx, n.SourceID)
	if !cfg.Enabled {
		return
	}
	b.agg.Add(n.ID, cfg.Color)
}

func (b *Bridge) OnRemoved(id int64) {
	b.agg.Remove(id)
}

func (b *Bridge) OnAccessChanged(hasAccess bool) {
	if !hasAccess {
		b.logger.Warn("notification database is not readable")
	}
}
