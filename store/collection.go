package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/panjf2000/ants/v2"

	"github.com/keyhole-db/keyhole/types"
)

// Range is a single-field bound set a native ranged read can serve. Bounds
// are inclusive unless marked open; a Prefix range matches string values
// starting with Prefix.
type Range struct {
	Field     string
	Lower     any
	LowerOpen bool
	Upper     any
	UpperOpen bool
	Prefix    string
	HasPrefix bool
}

// Collection is a lazily-evaluated, mutable view over the records of one
// table: an optional pushdown range narrows the rows the store hands back, an
// optional predicate filters them in memory, and offset/limit window the
// final walk. Nothing touches the store until a terminal method runs.
type Collection struct {
	table     *Table
	rng       *Range
	predicate func(key any, record types.Record) bool
	offset    int
	limit     int
}

func (c *Collection) WithRange(rng *Range) *Collection {
	c.rng = rng
	return c
}

func (c *Collection) Filter(predicate func(key any, record types.Record) bool) *Collection {
	c.predicate = predicate
	return c
}

func (c *Collection) Offset(n int) *Collection {
	c.offset = n
	return c
}

func (c *Collection) Limit(n int) *Collection {
	c.limit = n
	return c
}

// ErrStopIteration stops an Each walk early without reporting failure.
var ErrStopIteration = fmt.Errorf("stop iteration")

// Each walks the view in the store's natural (insertion) order. Returning an
// error from fn stops the walk.
func (c *Collection) Each(ctx context.Context, fn func(row KeyedRecord) error) error {
	query := fmt.Sprintf("SELECT pk, doc FROM %s", dataTableIdent(c.table.Name()))
	args := []any{}
	if c.rng != nil {
		where, rangeArgs := c.rng.whereClause()
		query += " WHERE " + where
		args = rangeArgs
	}
	query += " ORDER BY seq"

	rows, err := c.table.db.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", c.table.Name(), err)
	}
	defer rows.Close()

	skipped, yielded := 0, 0
	for rows.Next() {
		if c.limit >= 0 && yielded >= c.limit {
			break
		}

		var pk, doc string
		if err := rows.Scan(&pk, &doc); err != nil {
			return fmt.Errorf("failed to scan row from %s: %w", c.table.Name(), err)
		}

		key, err := DecodeKey(pk)
		if err != nil {
			return err
		}
		record := types.Record{}
		if err := json.Unmarshal([]byte(doc), &record); err != nil {
			return fmt.Errorf("corrupt record in %s: %w", c.table.Name(), err)
		}

		if c.predicate != nil && !c.predicate(key, record) {
			continue
		}
		if skipped < c.offset {
			skipped++
			continue
		}

		if err := fn(KeyedRecord{Key: key, Record: record}); err != nil {
			if err == ErrStopIteration {
				return nil
			}
			return err
		}
		yielded++
	}
	return rows.Err()
}

// ToSlice materializes the view.
func (c *Collection) ToSlice(ctx context.Context) ([]KeyedRecord, error) {
	out := []KeyedRecord{}
	err := c.Each(ctx, func(row KeyedRecord) error {
		out = append(out, row)
		return nil
	})
	return out, err
}

// Keys materializes only the raw keys of the view.
func (c *Collection) Keys(ctx context.Context) ([]any, error) {
	keys := []any{}
	err := c.Each(ctx, func(row KeyedRecord) error {
		keys = append(keys, row.Key)
		return nil
	})
	return keys, err
}

// Count evaluates the view without materializing records for the caller.
func (c *Collection) Count(ctx context.Context) (int, error) {
	count := 0
	err := c.Each(ctx, func(KeyedRecord) error {
		count++
		return nil
	})
	return count, err
}

const (
	deleteBatchSize = 500
	deleteWorkers   = 4
)

// Delete removes every record in the view and reports how many went away.
// Batches are issued through a shared goroutine pool.
func (c *Collection) Delete(ctx context.Context) (int, error) {
	keys, err := c.Keys(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pool, err := ants.NewPool(deleteWorkers)
	if err != nil {
		return 0, fmt.Errorf("failed to start delete pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		batch := keys[start:end]

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := c.table.deleteBatch(ctx, batch); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			return 0, fmt.Errorf("failed to submit delete batch: %w", submitErr)
		}
	}
	wg.Wait()

	if firstErr != nil {
		return 0, firstErr
	}
	return len(keys), nil
}

// Modify rewrites every record in the view through fn and reports how many
// records changed.
func (c *Collection) Modify(ctx context.Context, fn func(record types.Record) types.Record) (int, error) {
	rows, err := c.ToSlice(ctx)
	if err != nil {
		return 0, err
	}

	modified := 0
	for _, row := range rows {
		next := fn(row.Record.Clone())
		if next == nil {
			continue
		}
		key := row.Key
		if c.table.schema.PrimaryKey.Named() {
			key = nil
		}
		if _, err := c.table.Put(ctx, key, next); err != nil {
			return modified, err
		}
		modified++
	}
	return modified, nil
}

func (t *Table) deleteBatch(ctx context.Context, keys []any) error {
	placeholders := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		pk, err := EncodeKey(key)
		if err != nil {
			return err
		}
		placeholders = append(placeholders, "?")
		args = append(args, pk)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE pk IN (%s)",
		dataTableIdent(t.Name()), strings.Join(placeholders, ", "))
	if _, err := t.db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete batch from %s: %w", t.Name(), err)
	}
	return nil
}

func (r *Range) whereClause() (string, []any) {
	expr := fmt.Sprintf("json_extract(doc, %s)", quoteLiteral(jsonPath(r.Field)))

	if r.HasPrefix {
		escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(r.Prefix)
		return fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, expr), []any{escaped + "%"}
	}

	clauses := []string{}
	args := []any{}
	if r.Lower != nil {
		op := ">="
		if r.LowerOpen {
			op = ">"
		}
		clauses = append(clauses, fmt.Sprintf("%s %s ?", expr, op))
		args = append(args, bindValue(r.Lower))
	}
	if r.Upper != nil {
		op := "<="
		if r.UpperOpen {
			op = "<"
		}
		clauses = append(clauses, fmt.Sprintf("%s %s ?", expr, op))
		args = append(args, bindValue(r.Upper))
	}
	if len(clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(clauses, " AND "), args
}

// bindValue maps Go values onto what json_extract yields for them.
func bindValue(v any) any {
	switch val := v.(type) {
	case bool:
		if val {
			return 1
		}
		return 0
	default:
		return v
	}
}
