package versions

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/agentstation/segmaster/pkg/constants"
	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/segments"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Warehouse reads release records from a relational release table with
// columns segment_id, master_project_id and version.
type Warehouse struct {
	db     *sql.DB
	table  string
	latest string
	insert string
}

// NewWarehouse creates a warehouse store over table, defaulting to
// constants.DefaultReleaseTable when table is empty.
func NewWarehouse(db *sql.DB, table string) (*Warehouse, error) {
	if db == nil {
		return nil, errors.NewConfigError("versions", "warehouse store requires a database", nil)
	}
	if table == "" {
		table = constants.DefaultReleaseTable
	}
	if !identifierPattern.MatchString(table) {
		return nil, errors.NewConfigError("versions", "invalid release table name "+table, nil)
	}
	return &Warehouse{
		db:    db,
		table: table,
		latest: fmt.Sprintf(
			"SELECT segment_id, master_project_id, version FROM %s WHERE segment_id = $1 ORDER BY version DESC LIMIT 1",
			table),
		insert: fmt.Sprintf(
			"INSERT INTO %s (segment_id, master_project_id, version) VALUES ($1, $2, $3)",
			table),
	}, nil
}

// Table returns the release table name.
func (w *Warehouse) Table() string {
	return w.table
}

// Latest implements Store. The release table is keyed by segment id only.
func (w *Warehouse) Latest(ctx context.Context, key Key) (*segments.VersionRecord, error) {
	var (
		record segments.VersionRecord
		master sql.NullString
	)
	err := w.db.QueryRowContext(ctx, w.latest, key.SegmentID).Scan(&record.SegmentID, &master, &record.Version)
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, errors.WrapResource("query", "release table", w.table, err)
	}
	record.MasterProjectID = master.String
	return &record, nil
}

// Record implements Store.
func (w *Warehouse) Record(ctx context.Context, key Key, record segments.VersionRecord) error {
	if _, err := w.db.ExecContext(ctx, w.insert, key.SegmentID, record.MasterProjectID, record.Version); err != nil {
		return errors.WrapResource("insert", "release table", w.table, err)
	}
	return nil
}
