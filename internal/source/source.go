package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/notiglow/internal/model"
)

// BatchSize caps how many new records a single FetchNew call returns.
const BatchSize = 20

// AccessError indicates that the source database could not be opened or
// read. It covers both permission problems and transient locks; callers
// must treat it as "no data this cycle", never as "all rows removed".
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access error (%s): %v", e.Path, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// IsAccessError reports whether err (or any error in its chain) is an AccessError.
func IsAccessError(err error) bool {
	var accessErr *AccessError
	return errors.As(err, &accessErr)
}

// Reader defines the read-only contract over the notification record store.
// Implementations must never write to the store and must tolerate a
// concurrent external writer.
type Reader interface {
	// FetchNew returns up to BatchSize records with an id greater than
	// sinceID, newest delivery first. Records whose application identifier
	// cannot be resolved are omitted.
	FetchNew(ctx context.Context, sinceID int64) ([]model.Notification, error)

	// FetchExistingIDs returns the subset of ids that still exist.
	FetchExistingIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error)

	// FetchKnownSourceIDs returns every distinct application identifier.
	FetchKnownSourceIDs(ctx context.Context) ([]string, error)

	// MaxID returns the current maximum record id. ok is false when the
	// store holds no records.
	MaxID(ctx context.Context) (id int64, ok bool, err error)
}
