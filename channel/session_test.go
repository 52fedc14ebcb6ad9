package channel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyhole-db/keyhole/constants"
	"github.com/keyhole-db/keyhole/types"
)

func TestSessionLoadRequiresDiscovery(t *testing.T) {
	db := seedDatabase(t)
	c := New(db, WithInline())
	defer c.Close()

	session, err := NewSession(c, db, "items", 10)
	require.NoError(t, err)

	_, err = session.LoadAuthoritative(context.Background(), nil, "", types.Ascending, 1, 0)
	assert.Error(t, err)
}

func TestSessionDiscoverThenLoad(t *testing.T) {
	ctx := context.Background()
	db := seedDatabase(t)
	c := New(db, WithInline())
	defer c.Close()

	session, err := NewSession(c, db, "items", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.UnnamedKeyToken}, session.SelectorFields())

	schema, err := session.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Int64, schema.Columns["n"])
	// the synthetic key token is not a column
	assert.NotContains(t, schema.Columns, constants.UnnamedKeyToken)

	result, err := session.LoadAuthoritative(ctx, []types.Filter{
		{Field: "n", Method: types.MethodNumberGt, Search: "3"},
	}, "n", types.Descending, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, float64(5), result.Data[0]["n"])
	// records carry their identity for selection
	assert.Contains(t, result.Data[0], constants.UnnamedKeyToken)
}

func TestSessionDropsUnusableFilters(t *testing.T) {
	ctx := context.Background()
	db := seedDatabase(t)
	c := New(db, WithInline())
	defer c.Close()

	session, err := NewSession(c, db, "items", 10)
	require.NoError(t, err)
	_, err = session.Discover(ctx)
	require.NoError(t, err)

	// a filter on a column discovery never saw, and one whose search text
	// does not parse, both behave as absent
	result, err := session.LoadAuthoritative(ctx, []types.Filter{
		{Field: "ghost", Method: types.MethodEquals, Search: "x"},
		{Field: "n", Method: types.MethodNumberGt, Search: "ten"},
	}, "", types.Ascending, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
}

func TestSessionUnknownTable(t *testing.T) {
	db := seedDatabase(t)
	c := New(db, WithInline())
	defer c.Close()

	_, err := NewSession(c, db, "missing", 10)
	assert.Error(t, err)
}
