package model

import "time"

// AppPreference is the persisted per-application display setting.
type AppPreference struct {
	// BundleID is the application identifier, e.g. "com.apple.mail".
	BundleID string `json:"bundle_id"`

	// Enabled controls whether notifications from this app glow at all.
	Enabled bool `json:"enabled"`

	// Color is a "#rrggbb" hex string; empty means "use the default".
	Color string `json:"color"`

	UpdatedAt time.Time `json:"updated_at"`
}

// KnownApp is an application identifier that has been seen in the
// source database at least once.
type KnownApp struct {
	BundleID    string    `json:"bundle_id" db:"bundle_id"`
	FirstSeenAt time.Time `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at" db:"last_seen_at"`
}

// AppConfig is what the resolver hands to the presentation layer for a
// single source identifier.
type AppConfig struct {
	Enabled bool
	Color   RGB
}
