package watch

import (
	"os"
	"time"
)

// Fingerprint is the pair of modification times used to decide whether
// the source database may have changed. A zero time means the file was
// absent or unreadable.
type Fingerprint struct {
	DB  time.Time
	WAL time.Time
}

// Max returns the later of the two modification times.
func (f Fingerprint) Max() time.Time {
	if f.WAL.After(f.DB) {
		return f.WAL
	}
	return f.DB
}

// Newer reports whether f strictly advances past prev. Equal or absent
// timestamps never count as a change.
func (f Fingerprint) Newer(prev Fingerprint) bool {
	cur := f.Max()
	if cur.IsZero() {
		return false
	}
	return cur.After(prev.Max())
}

// ReadFingerprint stats the database and its write-ahead log.
func ReadFingerprint(dbPath string) Fingerprint {
	return Fingerprint{
		DB:  modTime(dbPath),
		WAL: modTime(WALPath(dbPath)),
	}
}

// WALPath returns the write-ahead log path for a database file.
func WALPath(dbPath string) string {
	return dbPath + "-wal"
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
