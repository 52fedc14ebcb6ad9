package typeutils

import (
	"time"

	"github.com/keyhole-db/keyhole/types"
)

// typeTrack accumulates the runtime types seen for one column across sampled
// records.
type typeTrack struct {
	str       bool
	boolean   bool
	integer   bool
	number    bool
	timestamp bool
	binary    bool
	other     bool
	seen      int
}

func (t *typeTrack) observe(v any) {
	t.seen++
	switch val := v.(type) {
	case nil:
		t.seen--
	case bool:
		t.boolean = true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		t.integer = true
	case float32:
		t.number = true
	case float64:
		// JSON numbers decode as float64; keep whole values as integers
		if val == float64(int64(val)) {
			t.integer = true
		} else {
			t.number = true
		}
	case string:
		// discovery MAY sniff timestamps; predicates never do
		if IsTimestampString(val) {
			t.timestamp = true
		} else {
			t.str = true
		}
	case time.Time:
		t.timestamp = true
	case []byte:
		t.binary = true
	case map[string]any, []any:
		t.other = true
	default:
		t.str = true
	}
}

func (t *typeTrack) resolve() types.DataType {
	if t.seen == 0 {
		return types.Null
	}
	if t.other {
		if t.str || t.boolean || t.integer || t.number || t.timestamp || t.binary {
			return types.String
		}
		return types.Object
	}

	count := 0
	for _, set := range []bool{t.str, t.boolean, t.integer, t.number, t.timestamp, t.binary} {
		if set {
			count++
		}
	}
	// integer+number collapse to number, anything else mixed becomes string
	if count > 1 {
		if count == 2 && t.integer && t.number {
			return types.Float64
		}
		return types.String
	}

	switch {
	case t.boolean:
		return types.Bool
	case t.integer:
		return types.Int64
	case t.number:
		return types.Float64
	case t.timestamp:
		return types.Timestamp
	case t.binary:
		return types.Binary
	default:
		return types.String
	}
}

// Resolve learns the effective column set of a schema-less table from sampled
// records and writes it into schema.Columns. Columns missing from some
// records stay in the map; a column is what at least one record carries.
func Resolve(schema *types.TableSchema, records ...types.Record) {
	tracks := map[string]*typeTrack{}

	for _, record := range records {
		for column, value := range record {
			track, found := tracks[column]
			if !found {
				track = &typeTrack{}
				tracks[column] = track
			}
			track.observe(value)
		}
	}

	columns := make(map[string]types.DataType, len(tracks))
	for column, track := range tracks {
		columns[column] = track.resolve()
	}
	schema.Columns = columns
}
