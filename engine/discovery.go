package engine

import (
	"context"

	"github.com/keyhole-db/keyhole/constants"
	"github.com/keyhole-db/keyhole/store"
	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils/logger"
	"github.com/keyhole-db/keyhole/utils/typeutils"
)

// Discover runs the firstrun pass for a table: a broad read of at least the
// minimum page size whose sampled records teach us the effective column set.
// Object stores are schema-less, so column shape cannot be known statically;
// filters referencing columns can only be validated against real content
// after this pass. The resolved columns are written into the table's cached
// schema descriptor.
func Discover(ctx context.Context, db *store.Database, tableName string, sampleSize int) (*types.TableSchema, error) {
	table, err := db.Table(tableName)
	if err != nil {
		return nil, err
	}

	if sampleSize < constants.MinPageSize {
		sampleSize = constants.MinPageSize
	}
	if sampleSize > constants.DiscoverySampleSize {
		sampleSize = constants.DiscoverySampleSize
	}

	rows, err := table.Collection().Limit(sampleSize).ToSlice(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]types.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record)
	}

	schema := table.Schema()
	typeutils.Resolve(schema, records...)
	logger.Debugf("discovered %d columns on %s from %d sampled records", len(schema.Columns), tableName, len(records))
	return schema, nil
}
