package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"howett.net/plist"
	_ "modernc.org/sqlite"
)

// notificationSchema mirrors the parts of the Notification Center schema
// the reader touches.
const notificationSchema = `
CREATE TABLE app (
	app_id     INTEGER PRIMARY KEY,
	identifier VARCHAR,
	badge      INTEGER NULL
);

CREATE TABLE record (
	rec_id            INTEGER PRIMARY KEY,
	app_id            INTEGER,
	uuid              BLOB,
	data              BLOB,
	request_date      REAL,
	request_last_date REAL,
	delivered_date    REAL,
	presented         BOOL,
	style             INTEGER,
	snooze_fire_date  REAL
);
`

var referenceEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// NotificationDB is a writable fixture shaped like the Notification Center
// database. It plays the role of the external writer in tests.
type NotificationDB struct {
	t    *testing.T
	path string
	db   *sqlx.DB
}

// NewNotificationDB creates an empty fixture database in a temp directory.
// The file lives at <tmp>/db2/db so the directory layout matches reality.
func NewNotificationDB(t *testing.T) *NotificationDB {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "db2")
	path := filepath.Join(dir, "db")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("creating fixture directory: %v", err)
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		t.Fatalf("opening fixture db: %v", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(notificationSchema); err != nil {
		db.Close()
		t.Fatalf("creating fixture schema: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("closing fixture db: %v", err)
		}
	})

	return &NotificationDB{t: t, path: path, db: db}
}

// Path returns the primary database file path.
func (f *NotificationDB) Path() string {
	return f.path
}

// AddApp inserts an app row. An empty identifier is stored as NULL.
func (f *NotificationDB) AddApp(appID int64, identifier string) {
	f.t.Helper()

	var v any
	if identifier != "" {
		v = identifier
	}
	f.exec("INSERT INTO app (app_id, identifier) VALUES (?, ?)", appID, v)
}

// AddRecord inserts a record with a binary plist payload carrying the
// given title and subtitle.
func (f *NotificationDB) AddRecord(
	recID int64,
	appID int64,
	delivered time.Time,
	title string,
	subtitle string,
) {
	f.t.Helper()
	f.AddRawRecord(recID, appID, delivered, Payload(f.t, "", title, subtitle))
}

// AddRawRecord inserts a record with an arbitrary data blob.
func (f *NotificationDB) AddRawRecord(
	recID int64,
	appID int64,
	delivered time.Time,
	data []byte,
) {
	f.t.Helper()

	offset := delivered.Sub(referenceEpoch).Seconds()
	f.exec(
		"INSERT INTO record (rec_id, app_id, data, delivered_date, presented) VALUES (?, ?, ?, ?, 1)",
		recID, appID, data, offset,
	)
}

// DeleteRecord removes a record, as happens when a notification is
// dismissed.
func (f *NotificationDB) DeleteRecord(recID int64) {
	f.t.Helper()
	f.exec("DELETE FROM record WHERE rec_id = ?", recID)
}

func (f *NotificationDB) exec(query string, args ...any) {
	f.t.Helper()
	if _, err := f.db.Exec(query, args...); err != nil {
		f.t.Fatalf("fixture exec %q: %v", query, err)
	}
}

// Payload builds a binary plist blob in the record.data layout.
func Payload(t *testing.T, app, title, subtitle string) []byte {
	t.Helper()

	req := map[string]any{}
	if title != "" {
		req["titl"] = title
	}
	if subtitle != "" {
		req["subt"] = subtitle
	}
	v := map[string]any{
		"app": app,
		"req": req,
	}

	data, err := plist.Marshal(v, plist.BinaryFormat)
	if err != nil {
		t.Fatalf("encoding payload: %v", err)
	}
	return data
}
