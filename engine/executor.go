package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/keyhole-db/keyhole/constants"
	"github.com/keyhole-db/keyhole/store"
	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils"
	"github.com/keyhole-db/keyhole/utils/logger"
	"github.com/keyhole-db/keyhole/utils/typeutils"
)

// QueryData runs one filtered, ordered, paginated read against a table.
//
// The match set is materialized before pagination: Total must count every
// matching record independent of offset/limit, and ordering needs the whole
// set in hand anyway whenever the plan cannot push the read down. Read errors
// propagate as-is and are never retried.
func QueryData(ctx context.Context, db *store.Database, req types.QueryRequest) (*types.QueryResult, error) {
	if err := utils.Validate(req); err != nil {
		return nil, fmt.Errorf("invalid query request: %w", err)
	}

	table, err := db.Table(req.Table)
	if err != nil {
		return nil, err
	}

	plan := BuildPlan(table.Schema(), req)
	logger.Debugf("query on %s: strategy=%s filters=%d order=%q", req.Table, plan.Strategy, len(req.Filters), req.Order)

	collection := table.Collection().Filter(plan.Predicate())
	if plan.Range != nil {
		collection = collection.WithRange(plan.Range)
	}

	rows, err := collection.ToSlice(ctx)
	if err != nil {
		return nil, err
	}

	if req.AddUnnamedPK {
		for _, row := range rows {
			row.Record[constants.UnnamedKeyToken] = row.Key
		}
	}

	sortRows(rows, req.Order, req.Direction)

	total := len(rows)
	data := sliceWindow(rows, req.Offset, req.Limit)

	records := make([]types.Record, 0, len(data))
	for _, row := range data {
		records = append(records, row.Record)
	}
	return &types.QueryResult{Data: records, Total: total}, nil
}

// sortRows orders the match set. With an order field set, records sort by
// that (dot-path) field in the requested direction; ties, and the whole set
// when no order is given, fall back to ascending raw key order so pagination
// windows stay deterministic.
func sortRows(rows []store.KeyedRecord, order string, direction types.Direction) {
	descending := direction == types.Descending

	sort.SliceStable(rows, func(i, j int) bool {
		if order != "" {
			a, _ := typeutils.LookupPath(rows[i].Record, order)
			b, _ := typeutils.LookupPath(rows[j].Record, order)
			if cmp := typeutils.Compare(a, b); cmp != 0 {
				if descending {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return typeutils.Compare(rows[i].Key, rows[j].Key) < 0
	})
}

// sliceWindow pages the ordered match set. Offset is 1-based, zero behaves
// as 1; limit zero means no limit.
func sliceWindow(rows []store.KeyedRecord, offset, limit int) []store.KeyedRecord {
	start := offset - 1
	if start < 0 {
		start = 0
	}
	if start >= len(rows) {
		return nil
	}
	end := len(rows)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return rows[start:end]
}
