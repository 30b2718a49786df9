package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notiglow/internal/model"
	"github.com/nhle/notiglow/internal/store"
	"github.com/nhle/notiglow/tests/testutil"
)

func TestPreferences_UpsertAndGet(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPreference(ctx, model.AppPreference{
		BundleID: "com.a.App",
		Enabled:  true,
		Color:    "#ff8800",
	}))

	got, err := s.GetPreference(ctx, "com.a.App")
	require.NoError(t, err)
	assert.Equal(t, "com.a.App", got.BundleID)
	assert.True(t, got.Enabled)
	assert.Equal(t, "#ff8800", got.Color)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, s.UpsertPreference(ctx, model.AppPreference{
		BundleID: "com.a.App",
		Enabled:  false,
	}))

	got, err = s.GetPreference(ctx, "com.a.App")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Empty(t, got.Color)
}

func TestPreferences_NotFound(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.GetPreference(context.Background(), "com.missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPreferences_Validation(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.UpsertPreference(ctx, model.AppPreference{}))
	assert.Error(t, s.UpsertPreference(ctx, model.AppPreference{BundleID: "x", Color: "orange"}))
}

func TestPreferences_ListAndDelete(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"com.c", "com.a", "com.b"} {
		require.NoError(t, s.UpsertPreference(ctx, model.AppPreference{BundleID: id, Enabled: true}))
	}
	require.NoError(t, s.DeletePreference(ctx, "com.b"))

	prefs, err := s.GetPreferences(ctx)
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.Equal(t, "com.a", prefs[0].BundleID)
	assert.Equal(t, "com.c", prefs[1].BundleID)
}

func TestKnownApps(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	first := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	require.NoError(t, s.RecordKnownApps(ctx, []string{"com.b", "com.a", ""}, first))
	require.NoError(t, s.RecordKnownApps(ctx, []string{"com.a"}, later))
	require.NoError(t, s.RecordKnownApps(ctx, nil, later))

	apps, err := s.GetKnownApps(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 2)

	assert.Equal(t, "com.a", apps[0].BundleID)
	assert.True(t, apps[0].FirstSeenAt.Equal(first))
	assert.True(t, apps[0].LastSeenAt.Equal(later))

	assert.Equal(t, "com.b", apps[1].BundleID)
	assert.True(t, apps[1].LastSeenAt.Equal(first))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertPreference(context.Background(), model.AppPreference{BundleID: "com.a", Enabled: true}))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetPreference(context.Background(), "com.a")
	require.NoError(t, err)
	assert.True(t, got.Enabled)
}
