package model

import "time"

// Notification is a single delivered notification row observed in the
// Notification Center database. Identity is solely ID.
type Notification struct {
	// ID is the record primary key assigned by the source database.
	ID int64 `json:"id"`

	// SourceID is the bundle identifier of the application that posted it.
	SourceID string `json:"source_id"`

	// DeliveredAt is the absolute delivery time.
	DeliveredAt time.Time `json:"delivered_at"`

	// Title is empty when the record carries no title or its payload
	// could not be decoded.
	Title string `json:"title,omitempty"`

	// Subtitle follows the same rules as Title.
	Subtitle string `json:"subtitle,omitempty"`
}

// Label returns the best human-readable summary of the notification.
func (n Notification) Label() string {
	switch {
	case n.Title != "" && n.Subtitle != "":
		return n.Title + ": " + n.Subtitle
	case n.Title != "":
		return n.Title
	case n.Subtitle != "":
		return n.Subtitle
	default:
		return n.SourceID
	}
}
