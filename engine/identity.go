package engine

import (
	"fmt"
	"strings"

	"github.com/keyhole-db/keyhole/constants"
	"github.com/keyhole-db/keyhole/store"
	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils/typeutils"
)

// RowSelectorFields inspects a table's key schema and returns the ordered
// field list that identifies a record: the named key component(s), or the
// synthetic *key* token when the key is unnamed, in which case the record's
// raw key (not a property of the value) supplies the identity.
func RowSelectorFields(table *store.Table) []string {
	pk := table.Schema().PrimaryKey
	if !pk.Named() {
		return []string{constants.UnnamedKeyToken}
	}
	fields := make([]string, len(pk.KeyPath))
	copy(fields, pk.KeyPath)
	return fields
}

// RowSelector concatenates, in field order, the stringified value of each
// selector field. Two records compare equal under the selector iff they are
// the same logical record, regardless of which page or filter state produced
// them. The raw key is read from the record's *key* field, which the
// executor materializes for unnamed-key tables.
//
// Components join on "|"; a literal "|" or "\" inside a component is escaped
// so the selector stays injective. Array-valued components are wrapped in
// brackets after per-element escaping, keeping ["a","b"] distinct from "a|b".
func RowSelector(selectorFields []string, record types.Record) string {
	parts := make([]string, 0, len(selectorFields))
	for _, field := range selectorFields {
		value, _ := typeutils.LookupPath(record, field)
		parts = append(parts, selectorComponent(value))
	}
	return strings.Join(parts, constants.SelectorSeparator)
}

// RowSelectorPrimKey reconstructs the literal key value needed to address the
// record for update or delete: the raw key under *key*, a scalar for a
// simple named key, or an ordered slice for a compound key.
func RowSelectorPrimKey(selectorFields []string, record types.Record) any {
	if len(selectorFields) == 1 {
		value, _ := typeutils.LookupPath(record, selectorFields[0])
		return value
	}
	key := make([]any, 0, len(selectorFields))
	for _, field := range selectorFields {
		value, _ := typeutils.LookupPath(record, field)
		key = append(key, value)
	}
	return key
}

func selectorComponent(value any) string {
	switch val := value.(type) {
	case nil:
		return ""
	case []any:
		elems := make([]string, 0, len(val))
		for _, elem := range val {
			elems = append(elems, escapeSelectorPart(stringifyScalar(elem)))
		}
		return "[" + strings.Join(elems, constants.SelectorSeparator) + "]"
	default:
		return escapeSelectorPart(stringifyScalar(value))
	}
}

func stringifyScalar(value any) string {
	switch val := value.(type) {
	case float64:
		// JSON decoding widens whole numbers; keep 3 and 3.0 identical
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", value)
	}
}

var selectorEscaper = strings.NewReplacer(
	constants.SelectorEscape, constants.SelectorEscape+constants.SelectorEscape,
	constants.SelectorSeparator, constants.SelectorEscape+constants.SelectorSeparator,
	"[", constants.SelectorEscape+"[",
)

func escapeSelectorPart(s string) string {
	return selectorEscaper.Replace(s)
}
