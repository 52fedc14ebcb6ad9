package typeutils

import (
	"reflect"
	"time"

	"github.com/goccy/go-json"

	"github.com/keyhole-db/keyhole/types"
)

var timeType = reflect.TypeOf(time.Time{})

// TypeFromValue reports the runtime data type of a single record value.
// Strings are NOT sniffed for timestamps here: a query predicate must see the
// value with the type it actually has, or a date filter on a string column
// would spuriously match (discovery-time sniffing lives in resolver.go).
func TypeFromValue(v interface{}) types.DataType {
	switch val := v.(type) {
	case nil:
		return types.Null
	case bool:
		return types.Bool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return types.Int64
	case float32, float64:
		return types.Float64
	case string:
		return types.String
	case []byte:
		return types.Binary
	case time.Time:
		return types.Timestamp
	case []any:
		return types.Array
	case map[string]any:
		return types.Object
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return types.Int64
		}
		return types.Float64
	}

	return typeFromValueReflect(v)
}

// typeFromValueReflect handles types that require reflection
func typeFromValueReflect(v interface{}) types.DataType {
	valType := reflect.TypeOf(v)
	if valType == nil {
		return types.Null
	}
	if valType.Kind() == reflect.Pointer {
		val := reflect.ValueOf(v)
		if val.IsNil() {
			return types.Null
		}
		return TypeFromValue(val.Elem().Interface())
	}

	switch valType.Kind() {
	case reflect.Invalid:
		return types.Null
	case reflect.Bool:
		return types.Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return types.Int64
	case reflect.Float32, reflect.Float64:
		return types.Float64
	case reflect.String:
		return types.String
	case reflect.Slice, reflect.Array:
		return types.Array
	case reflect.Map:
		return types.Object
	default:
		if valType == timeType {
			return types.Timestamp
		}
		return types.Unknown
	}
}

// IsNumeric reports whether the runtime type of v is a number.
func IsNumeric(v interface{}) bool {
	t := TypeFromValue(v)
	return t == types.Int64 || t == types.Float64
}
