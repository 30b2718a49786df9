package ncdb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/notiglow/internal/model"
	"github.com/nhle/notiglow/internal/source"
)

// Adapter implements source.Reader for the macOS Notification Center
// database.
type Adapter struct {
	client *Client
	logger *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for per-row diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// NewAdapter creates a reader for the database at path.
func NewAdapter(path string, busyTimeout time.Duration, opts ...Option) *Adapter {
	a := &Adapter{
		client: NewClient(path, busyTimeout),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchNew returns up to source.BatchSize records newer than sinceID.
// A record whose payload cannot be decoded is still returned, without a
// title or subtitle. A record whose app cannot be resolved is dropped.
func (a *Adapter) FetchNew(
	ctx context.Context,
	sinceID int64,
) ([]model.Notification, error) {
	var out []model.Notification

	err := a.client.withDB(ctx, func(db *sqlx.DB) error {
		rows, err := a.client.newRecords(ctx, db, sinceID, source.BatchSize)
		if err != nil {
			return err
		}

		resolved := make(map[int64]string)
		unresolved := make(map[int64]bool)

		for _, row := range rows {
			if !row.AppID.Valid {
				continue
			}

			appID := row.AppID.Int64
			identifier, ok := resolved[appID]
			if !ok {
				if unresolved[appID] {
					continue
				}
				id, found, err := a.client.appIdentifier(ctx, db, appID)
				if err != nil {
					return err
				}
				if !found {
					unresolved[appID] = true
					continue
				}
				resolved[appID] = id
				identifier = id
			}

			n := model.Notification{
				ID:          row.RecID,
				SourceID:    identifier,
				DeliveredAt: deliveredAt(row.DeliveredDate),
			}

			title, subtitle, err := decodePayload(row.Data)
			if err != nil {
				a.logger.Debug("record payload not decoded",
					"id", row.RecID,
					"error", err,
				)
			} else {
				n.Title = title
				n.Subtitle = subtitle
			}

			out = append(out, n)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching records after %d: %w", sinceID, err)
	}

	return out, nil
}

// FetchExistingIDs returns the subset of ids still present in the store.
func (a *Adapter) FetchExistingIDs(
	ctx context.Context,
	ids []int64,
) (map[int64]struct{}, error) {
	if len(ids) == 0 {
		return map[int64]struct{}{}, nil
	}

	var found map[int64]struct{}
	err := a.client.withDB(ctx, func(db *sqlx.DB) error {
		var err error
		found, err = a.client.existingRecordIDs(ctx, db, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("checking %d records: %w", len(ids), err)
	}

	return found, nil
}

// FetchKnownSourceIDs returns every distinct application identifier the
// store has recorded.
func (a *Adapter) FetchKnownSourceIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := a.client.withDB(ctx, func(db *sqlx.DB) error {
		var err error
		ids, err = a.client.identifiers(ctx, db)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	return ids, nil
}

// MaxID returns the current maximum record id.
func (a *Adapter) MaxID(ctx context.Context) (int64, bool, error) {
	var id int64
	var ok bool
	err := a.client.withDB(ctx, func(db *sqlx.DB) error {
		v, err := a.client.maxRecordID(ctx, db)
		if err != nil {
			return err
		}
		id, ok = v.Int64, v.Valid
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("reading max record id: %w", err)
	}
	return id, ok, nil
}

var _ source.Reader = (*Adapter)(nil)
