package engine

import (
	"github.com/keyhole-db/keyhole/store"
	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils/typeutils"
)

// Strategy names the two read strategies the planner chooses between. The
// store only serves efficient ranged reads on a single field, so the choice
// is binary: push one indexed predicate down, or materialize the table and do
// everything in memory. There is no cost model beyond that.
type Strategy string

const (
	FullScan   Strategy = "full_scan"
	IndexRange Strategy = "index_range"
)

// Plan is the compiled form of a query request: the chosen strategy, the
// pushdown range when one applies, and the parsed active predicate set.
//
// The predicate always carries every active filter, pushdown included: the
// ranged read narrows the rows the store hands back, and the predicate
// remains the source of truth for matching.
type Plan struct {
	Strategy Strategy
	Range    *store.Range
	active   []*parsedFilter
}

// BuildPlan compiles the request against the table schema. Invalid filters
// are treated as absent. The index strategy applies only when exactly one
// valid filter is active, its field is indexed, its method is expressible as
// a range, and no sort competes with the read order.
func BuildPlan(schema *types.TableSchema, req types.QueryRequest) *Plan {
	plan := &Plan{Strategy: FullScan, active: activeFilters(req.Filters)}

	if len(plan.active) != 1 || req.Order != "" {
		return plan
	}

	pf := plan.active[0]
	if !schema.HasIndex(pf.field) || !pf.props.Pushdown {
		return plan
	}
	rng := rangeForFilter(pf)
	if rng == nil {
		return plan
	}

	plan.Strategy = IndexRange
	plan.Range = rng
	return plan
}

// Predicate returns the conjunctive record test for the plan's active
// filters.
func (p *Plan) Predicate() func(key any, record types.Record) bool {
	return predicateOf(p.active)
}

// rangeForFilter translates one pushdown-able filter into a native range.
//
// Numeric bounds widen outward by typeutils.ComparisonEpsilon so the ranged
// read never drops a row the epsilon-tolerant predicate would accept. The
// widened range may admit extra rows; the predicate re-applies exactly.
func rangeForFilter(pf *parsedFilter) *store.Range {
	switch pf.method {
	case types.MethodEquals:
		return &store.Range{Field: pf.field, Lower: pf.literal, Upper: pf.literal}
	case types.MethodStartsWith:
		return &store.Range{Field: pf.field, Prefix: pf.literal.(string), HasPrefix: true}
	case types.MethodNumberEquals:
		n := pf.literal.(float64)
		return &store.Range{Field: pf.field, Lower: n - typeutils.ComparisonEpsilon, Upper: n + typeutils.ComparisonEpsilon}
	case types.MethodNumberGt:
		return &store.Range{Field: pf.field, Lower: pf.literal.(float64) - typeutils.ComparisonEpsilon, LowerOpen: true}
	case types.MethodNumberGte:
		return &store.Range{Field: pf.field, Lower: pf.literal.(float64) - typeutils.ComparisonEpsilon}
	case types.MethodNumberLt:
		return &store.Range{Field: pf.field, Upper: pf.literal.(float64) + typeutils.ComparisonEpsilon, UpperOpen: true}
	case types.MethodNumberLte:
		return &store.Range{Field: pf.field, Upper: pf.literal.(float64) + typeutils.ComparisonEpsilon}
	case types.MethodNumberBetween:
		return &store.Range{
			Field: pf.field,
			Lower: pf.literal.(float64) - typeutils.ComparisonEpsilon,
			Upper: pf.literal2.(float64) + typeutils.ComparisonEpsilon,
		}
	case types.MethodBoolIs:
		return &store.Range{Field: pf.field, Lower: pf.literal, Upper: pf.literal}
	default:
		return nil
	}
}
