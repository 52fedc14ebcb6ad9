package channel

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyhole-db/keyhole/store"
	"github.com/keyhole-db/keyhole/types"
)

func seedDatabase(t *testing.T) *store.Database {
	t.Helper()
	db, err := store.Open(&store.Config{Path: filepath.Join(t.TempDir(), "keyhole.db"), Name: "testdb"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	table, err := db.CreateTable("items", nil, true, []string{"n"})
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		_, err := table.Put(context.Background(), nil, types.Record{"n": i})
		require.NoError(t, err)
	}
	return db
}

func itemsRequest(filters ...types.Filter) types.QueryRequest {
	return types.QueryRequest{Table: "items", AddUnnamedPK: true, Filters: filters}
}

func TestRunQueryInline(t *testing.T) {
	db := seedDatabase(t)
	c := New(db, WithInline())
	defer c.Close()

	result, err := c.RunQuery(context.Background(), itemsRequest())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
	assert.False(t, result.Encoded)
	assert.Equal(t, StateCompleted, c.State())
	assert.True(t, c.Inline())
}

func TestRunQueryOnWorker(t *testing.T) {
	db := seedDatabase(t)
	c := New(db)
	defer c.Close()
	assert.False(t, c.Inline())

	result, err := c.RunQuery(context.Background(), itemsRequest(
		types.Filter{Field: "n", Method: types.MethodNumberGt, Search: "3"},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, StateCompleted, c.State())

	// the worker is reused across queries
	result, err = c.RunQuery(context.Background(), itemsRequest())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
}

func TestLossyTransportIsCompensated(t *testing.T) {
	db := seedDatabase(t)
	lossy := New(db, WithLossyTransport())
	defer lossy.Close()
	direct := New(db, WithInline())
	defer direct.Close()

	req := itemsRequest()
	fromLossy, err := lossy.RunQuery(context.Background(), req)
	require.NoError(t, err)
	fromDirect, err := direct.RunQuery(context.Background(), req)
	require.NoError(t, err)

	// results are decoded before being handed back
	assert.False(t, fromLossy.Encoded)
	assert.Equal(t, fromDirect.Total, fromLossy.Total)
	assert.Equal(t, fromDirect.Data, fromLossy.Data)
}

func TestQueryErrorPropagates(t *testing.T) {
	db := seedDatabase(t)
	c := New(db)
	defer c.Close()

	_, err := c.RunQuery(context.Background(), types.QueryRequest{Table: "missing"})
	assert.Error(t, err)
	assert.Equal(t, StateErrored, c.State())

	// the channel recovers for the next query
	result, err := c.RunQuery(context.Background(), itemsRequest())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
}

func TestConcurrentQueryRejected(t *testing.T) {
	db := seedDatabase(t)
	c := New(db, WithInline())
	defer c.Close()

	c.mu.Lock()
	c.state = StateRunning
	c.mu.Unlock()

	_, err := c.RunQuery(context.Background(), itemsRequest())
	assert.Error(t, err)
}

func TestDeliverDiscardsStaleGeneration(t *testing.T) {
	db := seedDatabase(t)
	c := New(db)
	defer c.Close()

	msg := types.Message{Type: types.QueryResultMessage, Result: &types.QueryResult{}}

	c.deliver(c.generation-1, msg)
	select {
	case <-c.responses:
		t.Fatal("stale response should have been discarded")
	default:
	}

	c.deliver(c.generation, msg)
	select {
	case resp := <-c.responses:
		assert.Equal(t, types.QueryResultMessage, resp.msg.Type)
	default:
		t.Fatal("current-generation response should have been delivered")
	}
}

// A response carrying the right generation but the wrong target belongs to a
// query this channel never issued; the waiting query must skip it and keep
// waiting for its own answer.
func TestResponseForForeignTargetSkipped(t *testing.T) {
	db := seedDatabase(t)
	c := New(db)
	defer c.Close()

	c.responses <- response{generation: c.generation, msg: types.Message{
		Type:   types.QueryResultMessage,
		Target: types.Target{Database: "elsewhere", Table: "elsewhere"},
		Result: &types.QueryResult{Total: 99},
	}}

	result, err := c.RunQuery(context.Background(), itemsRequest())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, StateCompleted, c.State())
}

func TestInlineDiscardsSupersededResult(t *testing.T) {
	db := seedDatabase(t)
	c := New(db, WithInline())
	defer c.Close()

	c.mu.Lock()
	c.state = StateRunning
	stale := c.generation - 1
	c.mu.Unlock()

	_, err := c.runInline(context.Background(), itemsRequest(), stale)
	assert.ErrorIs(t, err, ErrQueryCancelled)
}

func TestCancelSupersedesInFlightQuery(t *testing.T) {
	db := seedDatabase(t)
	c := New(db)
	defer c.Close()

	done := make(chan error, 1)
	go func() {
		_, err := c.RunQuery(context.Background(), itemsRequest())
		done <- err
	}()

	// wait for the first query to be picked up, then abandon it
	deadline := time.Now().Add(2 * time.Second)
	for c.State() == StateIdle && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.Cancel()

	select {
	case err := <-done:
		// the first query either finished before the cancel landed or was
		// discarded; it must never block
		if err != nil {
			assert.True(t, errors.Is(err, ErrQueryCancelled), "unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled query never returned")
	}

	assert.Equal(t, StateIdle, c.State())

	// the respawned worker serves the next query
	result, err := c.RunQuery(context.Background(), itemsRequest(
		types.Filter{Field: "n", Method: types.MethodNumberEquals, Search: "2"},
	))
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, float64(2), result.Data[0]["n"])
}

func TestCancelWhenIdle(t *testing.T) {
	db := seedDatabase(t)
	c := New(db)
	defer c.Close()

	before := c.generation
	c.Cancel()
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, before+1, c.generation)

	result, err := c.RunQuery(context.Background(), itemsRequest())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
}

func TestContextCancellationAbortsQuery(t *testing.T) {
	db := seedDatabase(t)
	c := New(db, WithInline())
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.RunQuery(ctx, itemsRequest())
	assert.Error(t, err)
}

func TestTransportFailureFallsBackInline(t *testing.T) {
	db := seedDatabase(t)
	c := New(db)
	defer c.Close()

	// sever the transport under the channel
	c.endpoint.Close()

	_, err := c.RunQuery(context.Background(), itemsRequest())
	require.Error(t, err)
	assert.True(t, c.Inline())
	assert.Equal(t, StateErrored, c.State())

	// subsequent queries run inline
	result, err := c.RunQuery(context.Background(), itemsRequest())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
}
