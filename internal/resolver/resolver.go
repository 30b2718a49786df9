package resolver

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"

	"github.com/nhle/notiglow/internal/model"
	"github.com/nhle/notiglow/internal/store"
)

// PreferenceSource is the part of the preferences store the resolver needs.
type PreferenceSource interface {
	GetPreference(ctx context.Context, bundleID string) (*model.AppPreference, error)
}

// Palette is used to derive a stable default color per application.
var Palette = []model.RGB{
	{R: 0x5b, G: 0x9b, B: 0xd5},
	{R: 0x6b, G: 0xcb, B: 0x77},
	{R: 0xff, G: 0xd9, B: 0x3d},
	{R: 0xff, G: 0x6b, B: 0x6b},
	{R: 0xff, G: 0xa9, B: 0x4d},
	{R: 0xcc, G: 0x5d, B: 0xe8},
	{R: 0x4d, G: 0xd4, B: 0xc8},
	{R: 0xf7, G: 0x83, B: 0xac},
}

// Resolver maps a source application identifier to its display config.
type Resolver struct {
	prefs          PreferenceSource
	defaultEnabled bool
	defaultColor   *model.RGB
	logger         *slog.Logger
}

// New creates a Resolver. defaults.Color, when set, overrides the palette
// for applications without a stored color.
func New(prefs PreferenceSource, defaults model.DefaultsConfig, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		prefs:          prefs,
		defaultEnabled: defaults.Enabled,
		logger:         logger,
	}
	if defaults.Color != "" {
		c, err := model.ParseRGB(defaults.Color)
		if err != nil {
			return nil, err
		}
		r.defaultColor = &c
	}
	return r, nil
}

// Lookup returns whether sourceID is enabled and which color it glows in.
// A missing or unreadable preference falls back to the defaults.
func (r *Resolver) Lookup(ctx context.Context, sourceID string) model.AppConfig {
	cfg := model.AppConfig{
		Enabled: r.defaultEnabled,
		Color:   r.DefaultColor(sourceID),
	}

	if r.prefs == nil {
		return cfg
	}

	pref, err := r.prefs.GetPreference(ctx, sourceID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("reading preference failed, using defaults",
				"source", sourceID,
				"error", err,
			)
		}
		return cfg
	}

	cfg.Enabled = pref.Enabled
	if pref.Color != "" {
		c, err := model.ParseRGB(pref.Color)
		if err != nil {
			r.logger.Warn("stored color invalid, using default",
				"source", sourceID,
				"color", pref.Color,
			)
		} else {
			cfg.Color = c
		}
	}

	return cfg
}

// DefaultColor is the color used for sourceID when no preference sets one.
func (r *Resolver) DefaultColor(sourceID string) model.RGB {
	if r.defaultColor != nil {
		return *r.defaultColor
	}
	h := fnv.New32a()
	h.Write([]byte(sourceID))
	return Palette[h.Sum32()%uint32(len(Palette))]
}
