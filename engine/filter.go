package engine

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils/typeutils"
)

// parsedFilter is a filter whose search text has been coerced into the
// method's literal type. Only parsed filters ever reach predicate evaluation.
type parsedFilter struct {
	field   string
	method  types.FilterMethod
	props   types.MethodProps
	literal any
	// upper bound for between methods
	literal2 any
	pattern  *regexp.Regexp
}

// parseFilter coerces f.Search against the method's literal type. The same
// coercion backs IsFilterValid and predicate evaluation, so validity and
// matching can never disagree.
func parseFilter(f types.Filter) (*parsedFilter, error) {
	props, known := types.Methods[f.Method]
	if !known {
		return nil, fmt.Errorf("unknown filter method %q", f.Method)
	}
	if f.Field == "" {
		return nil, fmt.Errorf("filter has no field")
	}

	pf := &parsedFilter{field: f.Field, method: f.Method, props: props}

	switch props.Arity {
	case 0:
		return pf, nil
	case 2:
		low, high, found := strings.Cut(f.Search, ",")
		if !found {
			return nil, fmt.Errorf("method %s needs two comma-separated bounds", f.Method)
		}
		var err error
		if pf.literal, err = typeutils.ReformatValue(props.Literal, strings.TrimSpace(low)); err != nil {
			return nil, err
		}
		if pf.literal2, err = typeutils.ReformatValue(props.Literal, strings.TrimSpace(high)); err != nil {
			return nil, err
		}
		return pf, nil
	}

	if f.Method == types.MethodRegexp {
		pattern, err := regexp.Compile(f.Search)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		pf.pattern = pattern
		return pf, nil
	}

	literal, err := typeutils.ReformatValue(props.Literal, f.Search)
	if err != nil {
		return nil, err
	}
	pf.literal = literal
	return pf, nil
}

// IsFilterValid parses search against the filter method's expected literal
// type and reports whether it is a legal value for that method. Empty methods
// take no literal and are always valid.
func IsFilterValid(search string, f types.Filter) bool {
	f.Search = search
	_, err := parseFilter(f)
	return err == nil
}

// IsIndexedFilter reports whether the filter's field is backed by a store
// index. Purely advisory: an unindexed filter still runs, it just forces a
// full scan.
func IsIndexedFilter(schema *types.TableSchema, f types.Filter) bool {
	return schema.HasIndex(f.Field)
}

// MethodProperties returns the short human label of the filter's method.
func MethodProperties(f types.Filter) string {
	if props, known := types.Methods[f.Method]; known {
		return props.Label
	}
	return string(f.Method)
}

// activeFilters parses the valid filters of a request. Invalid filters are
// treated as absent, never as errors.
func activeFilters(filters []types.Filter) []*parsedFilter {
	active := []*parsedFilter{}
	for _, f := range filters {
		pf, err := parseFilter(f)
		if err != nil {
			continue
		}
		active = append(active, pf)
	}
	return active
}

// BuildPredicate compiles a filter set into one conjunctive record test.
// Invalid filters drop out; an empty or fully-invalid set matches everything.
func BuildPredicate(filters []types.Filter) func(key any, record types.Record) bool {
	active := activeFilters(filters)
	return predicateOf(active)
}

func predicateOf(active []*parsedFilter) func(key any, record types.Record) bool {
	if len(active) == 0 {
		return func(any, types.Record) bool { return true }
	}
	return func(_ any, record types.Record) bool {
		for _, pf := range active {
			if !pf.match(record) {
				return false
			}
		}
		return true
	}
}

// match evaluates one criterion against one record. Matching is type-aware:
// a numeric method only matches numeric values, a date method only values
// that carry a timestamp, so a filter never spuriously matches a field of
// the wrong runtime type.
func (pf *parsedFilter) match(record types.Record) bool {
	value, found := typeutils.LookupPath(record, pf.field)

	switch pf.method {
	case types.MethodEmpty:
		return !found || isEmptyValue(value)
	case types.MethodNotEmpty:
		return found && !isEmptyValue(value)
	}
	if !found || value == nil {
		return false
	}

	switch pf.props.Literal {
	case types.String:
		str, ok := value.(string)
		if !ok {
			return false
		}
		return pf.matchString(str)
	case types.Float64:
		if !typeutils.IsNumeric(value) {
			return false
		}
		return pf.matchNumber(value)
	case types.Timestamp:
		when, err := typeutils.ReformatDate(value)
		if err != nil {
			return false
		}
		return pf.matchDate(when)
	case types.Bool:
		b, ok := value.(bool)
		if !ok {
			return false
		}
		return b == pf.literal.(bool)
	}
	return false
}

func (pf *parsedFilter) matchString(value string) bool {
	search := ""
	if pf.literal != nil {
		search = pf.literal.(string)
	}
	switch pf.method {
	case types.MethodEquals:
		return value == search
	case types.MethodEqualsIgnoreCase:
		return strings.EqualFold(value, search)
	case types.MethodStartsWith:
		return strings.HasPrefix(value, search)
	case types.MethodContains:
		return strings.Contains(value, search)
	case types.MethodRegexp:
		return pf.pattern.MatchString(value)
	}
	return false
}

func (pf *parsedFilter) matchNumber(value any) bool {
	cmp := typeutils.Compare(value, pf.literal)
	switch pf.method {
	case types.MethodNumberEquals:
		return cmp == 0
	case types.MethodNumberNotEquals:
		return cmp != 0
	case types.MethodNumberGt:
		return cmp > 0
	case types.MethodNumberGte:
		return cmp >= 0
	case types.MethodNumberLt:
		return cmp < 0
	case types.MethodNumberLte:
		return cmp <= 0
	case types.MethodNumberBetween:
		return cmp >= 0 && typeutils.Compare(value, pf.literal2) <= 0
	}
	return false
}

func (pf *parsedFilter) matchDate(value time.Time) bool {
	low := pf.literal.(time.Time)
	switch pf.method {
	case types.MethodDateEquals:
		return value.Equal(low)
	case types.MethodDateBefore:
		return value.Before(low)
	case types.MethodDateAfter:
		return value.After(low)
	case types.MethodDateBetween:
		high := pf.literal2.(time.Time)
		return !value.Before(low) && !value.After(high)
	}
	return false
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
