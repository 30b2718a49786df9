package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS app_preferences (
	bundle_id  TEXT PRIMARY KEY,
	enabled    INTEGER NOT NULL DEFAULT 1 CHECK(enabled IN (0, 1)),
	color      TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS known_apps (
	bundle_id     TEXT PRIMARY KEY,
	first_seen_at DATETIME NOT NULL,
	last_seen_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_known_apps_last_seen ON known_apps(last_seen_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
