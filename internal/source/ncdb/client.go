package ncdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/notiglow/internal/source"
)

// existsChunk bounds the number of bound parameters in one IN (...) query.
const existsChunk = 500

// Client is a thin read-only accessor for the Notification Center
// database. Every call opens a fresh handle so a file that was replaced
// (for example after a WAL checkpoint or restore) is always re-read.
type Client struct {
	path        string
	busyTimeout time.Duration
}

// NewClient creates a client for the database at path.
func NewClient(path string, busyTimeout time.Duration) *Client {
	if busyTimeout <= 0 {
		busyTimeout = time.Second
	}
	return &Client{
		path:        path,
		busyTimeout: busyTimeout,
	}
}

// Path returns the primary database file path.
func (c *Client) Path() string {
	return c.path
}

// dsn builds a SQLite URI that opens the file read-only and never writes.
func (c *Client) dsn() string {
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.busyTimeout.Milliseconds()))
	q.Add("_pragma", "query_only(1)")

	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(c.path),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// withDB opens the database, runs fn and closes the handle. Open and
// ping failures are reported as *source.AccessError.
func (c *Client) withDB(ctx context.Context, fn func(db *sqlx.DB) error) error {
	db, err := sqlx.Open("sqlite", c.dsn())
	if err != nil {
		return &source.AccessError{Path: c.path, Err: err}
	}
	defer db.Close()

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return &source.AccessError{Path: c.path, Err: err}
	}

	return fn(db)
}

// newRecords selects up to limit records with rec_id > sinceID, newest
// delivery first.
func (c *Client) newRecords(
	ctx context.Context,
	db *sqlx.DB,
	sinceID int64,
	limit int,
) ([]recordRow, error) {
	var rows []recordRow
	err := db.SelectContext(ctx, &rows, `
		SELECT rec_id, app_id, data, delivered_date
		FROM record
		WHERE rec_id > ?
		ORDER BY delivered_date DESC
		LIMIT ?`,
		sinceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying new records: %w", err)
	}
	return rows, nil
}

// appIdentifier looks up the bundle identifier for an app foreign key.
// ok is false when the key does not resolve to a non-empty identifier.
func (c *Client) appIdentifier(
	ctx context.Context,
	db *sqlx.DB,
	appID int64,
) (identifier string, ok bool, err error) {
	var v sql.NullString
	err = db.GetContext(ctx, &v, "SELECT identifier FROM app WHERE app_id = ?", appID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying app %d: %w", appID, err)
	}
	if !v.Valid || v.String == "" {
		return "", false, nil
	}
	return v.String, true, nil
}

// identifiers returns every distinct non-empty app identifier.
func (c *Client) identifiers(ctx context.Context, db *sqlx.DB) ([]string, error) {
	var ids []string
	err := db.SelectContext(ctx, &ids, `
		SELECT DISTINCT identifier
		FROM app
		WHERE identifier IS NOT NULL AND identifier != ''
		ORDER BY identifier`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying app identifiers: %w", err)
	}
	return ids, nil
}

// maxRecordID returns MAX(rec_id); Valid is false for an empty table.
func (c *Client) maxRecordID(ctx context.Context, db *sqlx.DB) (sql.NullInt64, error) {
	var v sql.NullInt64
	if err := db.GetContext(ctx, &v, "SELECT MAX(rec_id) FROM record"); err != nil {
		return sql.NullInt64{}, fmt.Errorf("querying max record id: %w", err)
	}
	return v, nil
}

// existingRecordIDs returns which of ids are still present.
func (c *Client) existingRecordIDs(
	ctx context.Context,
	db *sqlx.DB,
	ids []int64,
) (map[int64]struct{}, error) {
	found := make(map[int64]struct{}, len(ids))

	for start := 0; start < len(ids); start += existsChunk {
		end := min(start+existsChunk, len(ids))

		query, args, err := sqlx.In("SELECT rec_id FROM record WHERE rec_id IN (?)", ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("building existence query: %w", err)
		}

		var present []int64
		if err := db.SelectContext(ctx, &present, db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("querying existing records: %w", err)
		}
		for _, id := range present {
			found[id] = struct{}{}
		}
	}

	return found, nil
}
