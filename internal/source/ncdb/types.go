package ncdb

import (
	"database/sql"
	"time"
)

// referenceEpoch is the zero point of delivered_date: seconds are counted
// from 2001-01-01T00:00:00Z, not from the Unix epoch.
var referenceEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// recordRow is one row of the record table as selected by FetchNew.
type recordRow struct {
	RecID         int64           `db:"rec_id"`
	AppID         sql.NullInt64   `db:"app_id"`
	Data          []byte          `db:"data"`
	DeliveredDate sql.NullFloat64 `db:"delivered_date"`
}

// recordPayload is the subset of the binary plist stored in record.data
// that we surface.
type recordPayload struct {
	App string         `plist:"app"`
	Req payloadRequest `plist:"req"`
}

type payloadRequest struct {
	Title    string `plist:"titl"`
	Subtitle string `plist:"subt"`
	Body     string `plist:"body"`
}

// deliveredAt converts a delivered_date offset to an absolute time.
// A NULL delivered_date yields the zero time.
func deliveredAt(v sql.NullFloat64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return referenceEpoch.Add(time.Duration(v.Float64 * float64(time.Second))).UTC()
}
