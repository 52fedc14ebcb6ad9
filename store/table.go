package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/goccy/go-json"

	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils/typeutils"
)

// Table is a handle on one object store. The schema descriptor is derived
// once per open and constant for the handle's lifetime.
type Table struct {
	db     *Database
	schema *types.TableSchema
}

// KeyedRecord pairs a record value with its raw key. The key is not part of
// the value for unnamed-key tables.
type KeyedRecord struct {
	Key    any
	Record types.Record
}

func (t *Table) Name() string {
	return t.schema.Table
}

func (t *Table) Schema() *types.TableSchema {
	return t.schema
}

func (t *Table) Database() *Database {
	return t.db
}

// Put inserts or replaces a record. For named keys the key is derived from
// the record via the key path and the key argument must be nil. For unnamed
// auto-increment keys a nil key allocates the next counter value. Returns the
// raw key the record is stored under.
func (t *Table) Put(ctx context.Context, key any, record types.Record) (any, error) {
	if t.schema.PrimaryKey.Named() {
		if key != nil {
			return nil, fmt.Errorf("table %s has a named key; key must come from the record", t.Name())
		}
		derived, err := keyFromRecord(t.schema.PrimaryKey, record)
		if err != nil {
			return nil, err
		}
		key = derived
	}

	doc, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record: %w", err)
	}

	if key == nil {
		if !t.schema.PrimaryKey.AutoIncrement {
			return nil, fmt.Errorf("table %s requires an explicit key", t.Name())
		}
		allocated, err := t.nextKey(ctx)
		if err != nil {
			return nil, err
		}
		key = allocated
	}

	pk, err := EncodeKey(key)
	if err != nil {
		return nil, err
	}

	if _, err := t.db.conn.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (pk, doc) VALUES (?, ?) ON CONFLICT(pk) DO UPDATE SET doc = excluded.doc",
		dataTableIdent(t.Name()),
	), pk, string(doc)); err != nil {
		return nil, fmt.Errorf("failed to write record to %s: %w", t.Name(), err)
	}
	return key, nil
}

// nextKey allocates the next auto-increment key: one past the highest
// numeric key currently stored, explicit out-of-band keys included. Counting
// rows instead would hand out a key an explicit Put already occupies and
// silently overwrite it through the upsert.
func (t *Table) nextKey(ctx context.Context) (int64, error) {
	var highest sql.NullFloat64
	if err := t.db.conn.GetContext(ctx, &highest, fmt.Sprintf(
		"SELECT MAX(json_extract(pk, '$')) FROM %s WHERE json_type(pk) IN ('integer', 'real')",
		dataTableIdent(t.Name()),
	)); err != nil {
		return 0, fmt.Errorf("failed to allocate key: %w", err)
	}
	next := int64(math.Floor(highest.Float64)) + 1
	if next < 1 {
		next = 1
	}
	return next, nil
}

// Get reads a single record by raw key.
func (t *Table) Get(ctx context.Context, key any) (types.Record, bool, error) {
	pk, err := EncodeKey(key)
	if err != nil {
		return nil, false, err
	}

	var doc string
	err = t.db.conn.GetContext(ctx, &doc, fmt.Sprintf("SELECT doc FROM %s WHERE pk = ?", dataTableIdent(t.Name())), pk)
	if err == sql.ErrNoRows {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to read from %s: %w", t.Name(), err)
	}

	record := types.Record{}
	if err := json.Unmarshal([]byte(doc), &record); err != nil {
		return nil, false, fmt.Errorf("corrupt record in %s: %w", t.Name(), err)
	}
	return record, true, nil
}

// Delete removes a single record by raw key.
func (t *Table) Delete(ctx context.Context, key any) error {
	pk, err := EncodeKey(key)
	if err != nil {
		return err
	}
	if _, err := t.db.conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE pk = ?", dataTableIdent(t.Name())), pk); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", t.Name(), err)
	}
	return nil
}

// Count reports how many records the table holds.
func (t *Table) Count(ctx context.Context) (int, error) {
	var count int
	if err := t.db.conn.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", dataTableIdent(t.Name()))); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t.Name(), err)
	}
	return count, nil
}

// Collection opens a lazily-evaluated view over the whole table.
func (t *Table) Collection() *Collection {
	return &Collection{table: t, limit: -1}
}

// EncodeKey renders a raw key (scalar, or ordered array for compound keys)
// into the canonical text form rows are addressed by.
func EncodeKey(key any) (string, error) {
	if key == nil {
		return "", fmt.Errorf("nil key")
	}
	out, err := json.Marshal(key)
	if err != nil {
		return "", fmt.Errorf("unencodable key %v: %w", key, err)
	}
	return string(out), nil
}

// DecodeKey inverts EncodeKey. Numbers come back as int64 when whole, else
// float64.
func DecodeKey(pk string) (any, error) {
	var key any
	if err := json.Unmarshal([]byte(pk), &key); err != nil {
		return nil, fmt.Errorf("corrupt key %q: %w", pk, err)
	}
	return normalizeKey(key), nil
}

func normalizeKey(key any) any {
	switch val := key.(type) {
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = normalizeKey(elem)
		}
		return val
	default:
		return key
	}
}

func keyFromRecord(key types.KeyDescriptor, record types.Record) (any, error) {
	parts := make([]any, 0, len(key.KeyPath))
	for _, field := range key.KeyPath {
		value, found := typeutils.LookupPath(record, field)
		if !found || value == nil {
			return nil, fmt.Errorf("record is missing key field %s", field)
		}
		parts = append(parts, value)
	}
	if !key.Compound() {
		return parts[0], nil
	}
	return parts, nil
}
