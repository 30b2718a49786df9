package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/notiglow/internal/model"
)

// ErrNotFound is returned when a requested preference does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for per-application display
// preferences and the catalogue of applications seen so far.
type Store interface {
	// === Preferences ===

	UpsertPreference(ctx context.Context, pref model.AppPreference) error
	GetPreference(ctx context.Context, bundleID string) (*model.AppPreference, error)
	GetPreferences(ctx context.Context) ([]model.AppPreference, error)
	DeletePreference(ctx context.Context, bundleID string) error

	// === Known apps ===

	RecordKnownApps(ctx context.Context, bundleIDs []string, seenAt time.Time) error
	GetKnownApps(ctx context.Context) ([]model.KnownApp, error)
}
