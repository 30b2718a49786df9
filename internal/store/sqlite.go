package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/notiglow/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertPreference inserts or replaces the preference for one application.
func (s *SQLiteStore) UpsertPreference(
	ctx context.Context,
	pref model.AppPreference,
) error {
	if pref.BundleID == "" {
		return errors.New("upserting preference: empty bundle id")
	}
	if pref.Color != "" {
		if _, err := model.ParseRGB(pref.Color); err != nil {
			return fmt.Errorf("upserting preference %s: %w", pref.BundleID, err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO app_preferences (bundle_id, enabled, color, updated_at)
		VALUES (?, ?, ?, ?)`,
		pref.BundleID, boolToInt(pref.Enabled), pref.Color, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting preference %s: %w", pref.BundleID, err)
	}

	return nil
}

// GetPreference retrieves the preference for bundleID, or ErrNotFound.
func (s *SQLiteStore) GetPreference(
	ctx context.Context,
	bundleID string,
) (*model.AppPreference, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT bundle_id, enabled, color, updated_at FROM app_preferences WHERE bundle_id = ?",
		bundleID,
	)

	pref, err := scanPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting preference %s: %w", bundleID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting preference %s: %w", bundleID, err)
	}

	return &pref, nil
}

// GetPreferences retrieves all stored preferences ordered by bundle id.
func (s *SQLiteStore) GetPreferences(
	ctx context.Context,
) ([]model.AppPreference, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT bundle_id, enabled, color, updated_at FROM app_preferences ORDER BY bundle_id",
	)
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}
	defer rows.Close()

	var prefs []model.AppPreference
	for rows.Next() {
		pref, err := scanPreference(rows)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, pref)
	}

	return prefs, rows.Err()
}

// DeletePreference removes the preference for bundleID, if any.
func (s *SQLiteStore) DeletePreference(ctx context.Context, bundleID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM app_preferences WHERE bundle_id = ?", bundleID)
	if err != nil {
		return fmt.Errorf("deleting preference %s: %w", bundleID, err)
	}
	return nil
}

// RecordKnownApps marks each bundle id as seen at seenAt, keeping the
// original first-seen time.
func (s *SQLiteStore) RecordKnownApps(
	ctx context.Context,
	bundleIDs []string,
	seenAt time.Time,
) error {
	if len(bundleIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO known_apps (bundle_id, first_seen_at, last_seen_at)
		VALUES (?, ?, ?)
		ON CONFLICT(bundle_id) DO UPDATE SET last_seen_at = excluded.last_seen_at`)
	if err != nil {
		return fmt.Errorf("preparing known app statement: %w", err)
	}
	defer stmt.Close()

	ts := seenAt.UTC()
	for _, id := range bundleIDs {
		if id == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, id, ts, ts); err != nil {
			return fmt.Errorf("recording known app %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// GetKnownApps returns every recorded application ordered by bundle id.
func (s *SQLiteStore) GetKnownApps(ctx context.Context) ([]model.KnownApp, error) {
	var apps []model.KnownApp
	err := s.db.SelectContext(ctx, &apps,
		"SELECT bundle_id, first_seen_at, last_seen_at FROM known_apps ORDER BY bundle_id",
	)
	if err != nil {
		return nil, fmt.Errorf("querying known apps: %w", err)
	}
	return apps, nil
}

// rowScanner is satisfied by both *sqlx.Row and *sqlx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPreference scans a preference row.
func scanPreference(row rowScanner) (model.AppPreference, error) {
	var (
		pref      model.AppPreference
		enabled   int
		updatedAt time.Time
	)

	if err := row.Scan(&pref.BundleID, &enabled, &pref.Color, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AppPreference{}, err
		}
		return model.AppPreference{}, fmt.Errorf("scanning preference row: %w", err)
	}

	pref.Enabled = enabled != 0
	pref.UpdatedAt = updatedAt

	return pref, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
