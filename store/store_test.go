package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyhole-db/keyhole/types"
)

func openTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := Open(&Config{Path: filepath.Join(t.TempDir(), "keyhole.db"), Name: "testdb"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(&Config{})
	assert.Error(t, err)
}

func TestCreateTableAndList(t *testing.T) {
	db := openTestDatabase(t)

	_, err := db.CreateTable("users", []string{"id"}, false, []string{"name"})
	require.NoError(t, err)
	_, err = db.CreateTable("logs", nil, true, nil)
	require.NoError(t, err)

	tables, err := db.Tables()
	require.NoError(t, err)
	assert.Equal(t, []string{"logs", "users"}, tables)

	table, err := db.Table("users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, table.Schema().PrimaryKey.KeyPath)
	assert.True(t, table.Schema().HasIndex("name"))
	assert.True(t, table.Schema().HasIndex("id"))
	assert.False(t, table.Schema().HasIndex("age"))

	_, err = db.Table("missing")
	assert.Error(t, err)
}

func TestPutGetDeleteNamedKey(t *testing.T) {
	ctx := context.Background()
	db := openTestDatabase(t)
	table, err := db.CreateTable("users", []string{"id"}, false, nil)
	require.NoError(t, err)

	key, err := table.Put(ctx, nil, types.Record{"id": "u1", "name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "u1", key)

	// named keys always come from the record value
	_, err = table.Put(ctx, "u2", types.Record{"id": "u2"})
	assert.Error(t, err)

	// a record without its key field cannot be stored
	_, err = table.Put(ctx, nil, types.Record{"name": "Bob"})
	assert.Error(t, err)

	record, found, err := table.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Alice", record["name"])

	// put is an upsert
	_, err = table.Put(ctx, nil, types.Record{"id": "u1", "name": "Alicia"})
	require.NoError(t, err)
	record, found, err = table.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Alicia", record["name"])

	count, err := table.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, table.Delete(ctx, "u1"))
	_, found, err = table.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPutAutoIncrementAllocatesKeys(t *testing.T) {
	ctx := context.Background()
	db := openTestDatabase(t)
	table, err := db.CreateTable("logs", nil, true, nil)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		key, err := table.Put(ctx, nil, types.Record{"seq": i})
		require.NoError(t, err)
		assert.Equal(t, int64(i), key)
	}

	record, found, err := table.Get(ctx, int64(2))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, float64(2), record["seq"])
}

// An explicit numeric key advances the allocator past it, so a later
// unnamed Put never lands on a key an out-of-band write already occupies.
func TestPutAutoIncrementRespectsExplicitKeys(t *testing.T) {
	ctx := context.Background()
	db := openTestDatabase(t)
	table, err := db.CreateTable("logs", nil, true, nil)
	require.NoError(t, err)

	_, err = table.Put(ctx, int64(2), types.Record{"who": "explicit"})
	require.NoError(t, err)

	first, err := table.Put(ctx, nil, types.Record{"who": "auto1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), first)

	second, err := table.Put(ctx, nil, types.Record{"who": "auto2"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), second)

	record, found, err := table.Get(ctx, int64(2))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "explicit", record["who"])

	count, err := table.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPutAutoIncrementAllocatorEdges(t *testing.T) {
	ctx := context.Background()
	db := openTestDatabase(t)
	table, err := db.CreateTable("logs", nil, true, nil)
	require.NoError(t, err)

	// a fractional explicit key rounds the counter up to the next integer
	_, err = table.Put(ctx, 2.5, types.Record{"who": "fractional"})
	require.NoError(t, err)
	key, err := table.Put(ctx, nil, types.Record{"who": "auto"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), key)

	// deleting a low key must not re-issue it while higher keys exist
	require.NoError(t, table.Delete(ctx, 2.5))
	key, err = table.Put(ctx, nil, types.Record{"who": "later"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), key)

	// string keys never feed the counter
	other, err := db.CreateTable("mixed", nil, true, nil)
	require.NoError(t, err)
	_, err = other.Put(ctx, "session-9", types.Record{"who": "named"})
	require.NoError(t, err)
	key, err = other.Put(ctx, nil, types.Record{"who": "auto"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), key)
}

func TestCompoundKeyRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDatabase(t)
	table, err := db.CreateTable("reports", []string{"year", "month"}, false, nil)
	require.NoError(t, err)

	key, err := table.Put(ctx, nil, types.Record{"year": 2024, "month": 3, "total": 10})
	require.NoError(t, err)
	assert.Equal(t, []any{2024, 3}, key)

	record, found, err := table.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, float64(10), record["total"])
}

func TestEncodeDecodeKey(t *testing.T) {
	testCases := []struct {
		name    string
		key     any
		decoded any
	}{
		{"int", int64(5), int64(5)},
		{"whole_float_narrows", float64(3), int64(3)},
		{"fractional_float", 2.5, 2.5},
		{"string", "u1", "u1"},
		{"compound", []any{"2024", float64(3)}, []any{"2024", int64(3)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pk, err := EncodeKey(tc.key)
			require.NoError(t, err)
			out, err := DecodeKey(pk)
			require.NoError(t, err)
			assert.Equal(t, tc.decoded, out)
		})
	}

	t.Run("nil_key", func(t *testing.T) {
		_, err := EncodeKey(nil)
		assert.Error(t, err)
	})
}
