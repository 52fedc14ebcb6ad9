package utils

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func Ternary(cond bool, a, b any) any {
	if cond {
		return a
	}
	return b
}

// Concurrent runs fn over every element of set with bounded parallelism,
// failing fast on the first error.
func Concurrent[T any](ctx context.Context, set []T, concurrency int, fn func(ctx context.Context, one T, idx int) error) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for idx, one := range set {
		group.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return fn(ctx, one, idx)
			}
		})
	}

	return group.Wait()
}

func ArrayContains[T any](set []T, match func(elem T) bool) (int, bool) {
	for idx, elem := range set {
		if match(elem) {
			return idx, true
		}
	}
	return -1, false
}

func IsValidSubcommand(available []*cobra.Command, sub string) bool {
	for _, cmd := range available {
		if cmd.Use == sub {
			return true
		}
	}
	return false
}

// UnmarshalFile reads a JSON file into ref.
func UnmarshalFile(filePath string, ref any) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	if err := json.Unmarshal(data, ref); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filePath, err)
	}
	return nil
}
