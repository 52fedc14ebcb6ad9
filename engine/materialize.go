package engine

import (
	"context"

	"github.com/keyhole-db/keyhole/constants"
	"github.com/keyhole-db/keyhole/store"
	"github.com/keyhole-db/keyhole/types"
)

// MaterializeFromFilters turns a filter set back into a live, mutable view of
// the matching records: exactly the pre-pagination match set QueryData would
// compute, without slicing. Bulk delete, export and select-all run against
// this view so they see the same logical set the user was looking at, never
// a stale page.
func MaterializeFromFilters(table *store.Table, filters []types.Filter) *store.Collection {
	return table.Collection().Filter(BuildPredicate(filters))
}

// MaterializeFromSelection turns a set of selected row identities back into a
// live view. Match tests recompute each record's selector instead of
// re-running filters: a selection must survive a filter change.
func MaterializeFromSelection(table *store.Table, selectorFields []string, selectedIDs []string) *store.Collection {
	selected := make(map[string]struct{}, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = struct{}{}
	}

	return table.Collection().Filter(func(key any, record types.Record) bool {
		_, ok := selected[selectorOf(selectorFields, key, record)]
		return ok
	})
}

// SelectAll returns the selector of every record in the view.
func SelectAll(ctx context.Context, collection *store.Collection, selectorFields []string) ([]string, error) {
	selectors := []string{}
	err := collection.Each(ctx, func(row store.KeyedRecord) error {
		selectors = append(selectors, selectorOf(selectorFields, row.Key, row.Record))
		return nil
	})
	return selectors, err
}

// InvertSelection returns the selectors in the view that are NOT currently
// selected.
func InvertSelection(ctx context.Context, collection *store.Collection, selectorFields []string, selectedIDs []string) ([]string, error) {
	selected := make(map[string]struct{}, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = struct{}{}
	}

	inverted := []string{}
	err := collection.Each(ctx, func(row store.KeyedRecord) error {
		selector := selectorOf(selectorFields, row.Key, row.Record)
		if _, ok := selected[selector]; !ok {
			inverted = append(inverted, selector)
		}
		return nil
	})
	return inverted, err
}

// selectorOf computes a row selector straight off a store row, materializing
// the raw key under *key* when the selector fields need it.
func selectorOf(selectorFields []string, key any, record types.Record) string {
	for _, field := range selectorFields {
		if field == constants.UnnamedKeyToken {
			record = record.Clone()
			record[constants.UnnamedKeyToken] = key
			break
		}
	}
	return RowSelector(selectorFields, record)
}
