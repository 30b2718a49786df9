package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notiglow/internal/model"
	"github.com/nhle/notiglow/tests/testutil"
)

type failingPrefs struct{}

func (failingPrefs) GetPreference(context.Context, string) (*model.AppPreference, error) {
	return nil, errors.New("disk on fire")
}

func TestLookup_StoredPreference(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertPreference(ctx, model.AppPreference{
		BundleID: "com.a.App",
		Enabled:  false,
		Color:    "#102030",
	}))

	r, err := New(s, model.DefaultsConfig{Enabled: true}, nil)
	require.NoError(t, err)

	got := r.Lookup(ctx, "com.a.App")
	assert.False(t, got.Enabled)
	assert.Equal(t, model.RGB{R: 0x10, G: 0x20, B: 0x30}, got.Color)
}

func TestLookup_StoredPreferenceWithoutColor(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertPreference(ctx, model.AppPreference{BundleID: "com.a.App", Enabled: true}))

	r, err := New(s, model.DefaultsConfig{Enabled: false}, nil)
	require.NoError(t, err)

	got := r.Lookup(ctx, "com.a.App")
	assert.True(t, got.Enabled)
	assert.Equal(t, r.DefaultColor("com.a.App"), got.Color)
}

func TestLookup_Defaults(t *testing.T) {
	s := testutil.NewTestStore(t)

	r, err := New(s, model.DefaultsConfig{Enabled: true}, nil)
	require.NoError(t, err)

	got := r.Lookup(context.Background(), "com.unknown")
	assert.True(t, got.Enabled)
	assert.Contains(t, Palette, got.Color)
	assert.Equal(t, got.Color, r.Lookup(context.Background(), "com.unknown").Color, "stable per identifier")
}

func TestLookup_ConfiguredDefaultColor(t *testing.T) {
	r, err := New(nil, model.DefaultsConfig{Enabled: true, Color: "#ffffff"}, nil)
	require.NoError(t, err)

	assert.Equal(t, model.RGB{R: 255, G: 255, B: 255}, r.Lookup(context.Background(), "com.x").Color)

	_, err = New(nil, model.DefaultsConfig{Color: "nope"}, nil)
	assert.Error(t, err)
}

func TestLookup_StoreErrorFallsBack(t *testing.T) {
	r, err := New(failingPrefs{}, model.DefaultsConfig{Enabled: true}, nil)
	require.NoError(t, err)

	got := r.Lookup(context.Background(), "com.a.App")
	assert.True(t, got.Enabled)
}
