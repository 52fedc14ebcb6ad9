package engine

import (
	"encoding/base64"
	"time"

	"github.com/keyhole-db/keyhole/types"
)

// A serializing transport (anything that JSON-frames messages on the way to
// the worker boundary) corrupts binary values: []byte silently becomes a
// base64 string and time.Time a plain string, and the receiver cannot tell
// them apart from real strings. When the transport reports that flaw, every
// affected value is converted into an explicit type-tagged shape before
// crossing and restored on receipt. Decode(Encode(x)) is value-equal to x
// for every record the planner can produce.
const (
	codecTypeKey  = "$type"
	codecValueKey = "$value"

	codecBinaryTag    = "binary"
	codecTimestampTag = "timestamp"
)

// Encode rewrites records into their boundary-safe representation. Input
// records are not mutated.
func Encode(data []types.Record) []types.Record {
	out := make([]types.Record, len(data))
	for i, record := range data {
		encoded := make(types.Record, len(record))
		for field, value := range record {
			encoded[field] = encodeValue(value)
		}
		out[i] = encoded
	}
	return out
}

// Decode restores records from their boundary-safe representation.
func Decode(data []types.Record) []types.Record {
	out := make([]types.Record, len(data))
	for i, record := range data {
		decoded := make(types.Record, len(record))
		for field, value := range record {
			decoded[field] = decodeValue(value)
		}
		out[i] = decoded
	}
	return out
}

func encodeValue(value any) any {
	switch val := value.(type) {
	case []byte:
		return map[string]any{
			codecTypeKey:  codecBinaryTag,
			codecValueKey: base64.StdEncoding.EncodeToString(val),
		}
	case time.Time:
		return map[string]any{
			codecTypeKey:  codecTimestampTag,
			codecValueKey: val.Format(time.RFC3339Nano),
		}
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = encodeValue(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = encodeValue(elem)
		}
		return out
	default:
		return value
	}
}

func decodeValue(value any) any {
	switch val := value.(type) {
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = decodeValue(elem)
		}
		return out
	case map[string]any:
		if tag, ok := val[codecTypeKey].(string); ok && len(val) == 2 {
			if raw, ok := val[codecValueKey].(string); ok {
				switch tag {
				case codecBinaryTag:
					if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
						return decoded
					}
				case codecTimestampTag:
					if when, err := time.Parse(time.RFC3339Nano, raw); err == nil {
						return when
					}
				}
			}
		}
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = decodeValue(elem)
		}
		return out
	default:
		return value
	}
}
