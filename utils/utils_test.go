package utils

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTernary(t *testing.T) {
	assert.Equal(t, "yes", Ternary(true, "yes", "no"))
	assert.Equal(t, "no", Ternary(false, "yes", "no"))
}

func TestArrayContains(t *testing.T) {
	idx, found := ArrayContains([]int{1, 2, 3}, func(elem int) bool { return elem == 2 })
	assert.True(t, found)
	assert.Equal(t, 1, idx)

	idx, found = ArrayContains([]int{1, 2, 3}, func(elem int) bool { return elem > 5 })
	assert.False(t, found)
	assert.Equal(t, -1, idx)
}

func TestConcurrent(t *testing.T) {
	var sum atomic.Int64
	err := Concurrent(context.Background(), []int{1, 2, 3, 4, 5}, 2, func(_ context.Context, one int, _ int) error {
		sum.Add(int64(one))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), sum.Load())

	failure := fmt.Errorf("boom")
	err = Concurrent(context.Background(), []int{1, 2, 3}, 1, func(_ context.Context, one int, _ int) error {
		if one == 2 {
			return failure
		}
		return nil
	})
	assert.ErrorIs(t, err, failure)
}

func TestErrExecSequential(t *testing.T) {
	calls := 0
	err := ErrExecSequential(
		func() error { calls++; return fmt.Errorf("first") },
		func() error { calls++; return nil },
		func() error { calls++; return fmt.Errorf("third") },
	)
	// every function runs even when earlier ones fail
	assert.Equal(t, 3, calls)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "third")

	assert.NoError(t, ErrExecSequential(func() error { return nil }))
}

func TestValidate(t *testing.T) {
	type config struct {
		Name string `json:"name" validate:"required"`
		Mode string `json:"mode" validate:"omitempty,oneof=fast slow"`
	}

	assert.NoError(t, Validate(config{Name: "x", Mode: "fast"}))
	assert.NoError(t, Validate(config{Name: "x"}))

	err := Validate(config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")

	assert.Error(t, Validate(config{Name: "x", Mode: "weird"}))
}
