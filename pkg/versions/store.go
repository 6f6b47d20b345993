// Package versions resolves the latest released master version of a segment.
//
// Two stores are supported: a relational release table (Warehouse) and a
// filesystem release manifest (Manifest). Select picks exactly one of them
// from the configured clients; callers depend only on the Store interface.
package versions

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/logging"
	"github.com/agentstation/segmaster/pkg/segments"
)

// Key addresses the release history of one segment.
type Key struct {
	Domain      string
	DataProduct string
	SegmentID   string
}

// Store reads and publishes version records.
type Store interface {
	// Latest returns the highest-version record for the segment, or nil when
	// the segment has never been released.
	Latest(ctx context.Context, key Key) (*segments.VersionRecord, error)
	// Record publishes a new release record for the segment.
	Record(ctx context.Context, key Key, record segments.VersionRecord) error
}

// Select returns the warehouse store when db is non-nil and the manifest
// store otherwise.
func Select(db *sql.DB, table string, fs afero.Fs, root string) (Store, error) {
	if db != nil {
		w, err := NewWarehouse(db, table)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	return NewManifest(fs, root), nil
}

// Resolver reports the latest version number of a segment.
type Resolver struct {
	store  Store
	logger zerolog.Logger
}

// NewResolver creates a resolver over store. A nil logger disables logging.
func NewResolver(store Store, logger *zerolog.Logger) *Resolver {
	return &Resolver{store: store, logger: logging.Component(logger, "versions")}
}

// Resolve returns the latest version of the segment, or 0 when none exists.
func (r *Resolver) Resolve(ctx context.Context, key Key) (int, error) {
	record, err := r.store.Latest(ctx, key)
	if err != nil {
		return 0, errors.WrapResource("resolve", "version", key.SegmentID, err)
	}
	if record == nil {
		r.logger.Debug().Str("segment", key.SegmentID).Msg("no released version")
		return 0, nil
	}
	r.logger.Debug().
		Str("segment", key.SegmentID).
		Int("version", record.Version).
		Str("master", record.MasterProjectID).
		Msg("resolved latest version")
	return record.Version, nil
}
