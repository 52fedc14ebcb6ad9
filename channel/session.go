package channel

import (
	"context"
	"fmt"
	"strings"

	"github.com/keyhole-db/keyhole/constants"
	"github.com/keyhole-db/keyhole/engine"
	"github.com/keyhole-db/keyhole/store"
	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils"
	"github.com/keyhole-db/keyhole/utils/logger"
	"github.com/keyhole-db/keyhole/utils/typeutils"
)

// Session is one opened table view: selector fields derived once per open,
// the discovered column set, and the two-phase load protocol.
//
// Loading is deliberately two-step. The store is schema-less, so the first
// read of a table cannot know its effective columns; Discover samples a
// broad window to learn them, and only then can filters referencing those
// columns be validated against real content. LoadAuthoritative is the read
// whose pagination the caller may trust.
type Session struct {
	channel        *Channel
	db             *store.Database
	table          *store.Table
	selectorFields []string
	pageSize       int
	discovered     bool
}

func NewSession(ch *Channel, db *store.Database, tableName string, pageSize int) (*Session, error) {
	table, err := db.Table(tableName)
	if err != nil {
		return nil, err
	}
	pageSize = utils.Ternary(pageSize <= 0, constants.MinPageSize, pageSize).(int)
	return &Session{
		channel:        ch,
		db:             db,
		table:          table,
		selectorFields: engine.RowSelectorFields(table),
		pageSize:       pageSize,
	}, nil
}

func (s *Session) SelectorFields() []string {
	return s.selectorFields
}

func (s *Session) Schema() *types.TableSchema {
	return s.table.Schema()
}

// Discover runs the firstrun pass through the channel: a broad unfiltered
// read of at least the minimum page size whose records resolve the table's
// column set.
func (s *Session) Discover(ctx context.Context) (*types.TableSchema, error) {
	limit := s.pageSize
	if limit < constants.MinPageSize {
		limit = constants.MinPageSize
	}

	result, err := s.channel.RunQuery(ctx, types.QueryRequest{
		Database:     s.db.Name(),
		Table:        s.table.Name(),
		AddUnnamedPK: s.addUnnamedPK(),
		Offset:       1,
		Limit:        limit,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery read failed: %w", err)
	}

	schema := s.table.Schema()
	typeutils.Resolve(schema, result.Data...)
	delete(schema.Columns, constants.UnnamedKeyToken)
	s.discovered = true
	logger.Debugf("session discovered %d columns on %s", len(schema.Columns), s.table.Name())
	return schema, nil
}

// LoadAuthoritative runs the read the caller treats as authoritative for
// pagination. Filters are checked against the discovered column set and
// re-validated; anything that fails is treated as absent.
func (s *Session) LoadAuthoritative(ctx context.Context, filters []types.Filter, order string, direction types.Direction, offset, limit int) (*types.QueryResult, error) {
	if !s.discovered {
		return nil, fmt.Errorf("authoritative load before discovery on %s", s.table.Name())
	}

	active := make([]types.Filter, 0, len(filters))
	for _, f := range filters {
		// nested paths are checked by their top-level column
		head, _, _ := strings.Cut(f.Field, ".")
		if _, known := s.table.Schema().Columns[head]; !known {
			logger.Debugf("dropping filter on unknown column %s", f.Field)
			continue
		}
		f.Valid = engine.IsFilterValid(f.Search, f)
		if !f.Valid {
			continue
		}
		active = append(active, f)
	}

	if limit <= 0 {
		limit = s.pageSize
	}
	return s.channel.RunQuery(ctx, types.QueryRequest{
		Database:     s.db.Name(),
		Table:        s.table.Name(),
		AddUnnamedPK: s.addUnnamedPK(),
		Filters:      active,
		Order:        order,
		Direction:    direction,
		Offset:       offset,
		Limit:        limit,
	})
}

func (s *Session) addUnnamedPK() bool {
	return !s.table.Schema().PrimaryKey.Named()
}
