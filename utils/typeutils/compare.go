package typeutils

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
)

// Compare returns 0 for equal, -1 if a < b else 1 if a > b.
func Compare(a, b any) int {
	// Handle nil cases first
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	switch aVal := a.(type) {
	case uint, uint8, uint16, uint32, uint64:
		if !isConvertibleNumber(b) {
			return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
		}
		aFloat := reflect.ValueOf(a).Convert(reflect.TypeFor[float64]()).Float()
		bFloat := reflect.ValueOf(b).Convert(reflect.TypeFor[float64]()).Float()
		return compareFloats(aFloat, bFloat)
	case int, int8, int16, int32, int64, float32, float64:
		if !isConvertibleNumber(b) {
			return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
		}
		aFloat := reflect.ValueOf(a).Convert(reflect.TypeFor[float64]()).Float()
		bFloat := reflect.ValueOf(b).Convert(reflect.TypeFor[float64]()).Float()
		return compareFloats(aFloat, bFloat)
	case time.Time:
		bTime, ok := b.(time.Time)
		if !ok {
			return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
		}
		return aVal.Compare(bTime)
	case bool:
		bBool, ok := b.(bool)
		if !ok {
			return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
		}
		// false < true
		if !aVal && bBool {
			return -1
		} else if aVal && !bBool {
			return 1
		}
		return 0
	case []byte:
		if bBytes, ok := b.([]byte); ok {
			return bytes.Compare(aVal, bBytes)
		}
		return strings.Compare(string(aVal), fmt.Sprintf("%v", b))
	case string:
		bStr, ok := b.(string)
		if !ok {
			bStr = fmt.Sprintf("%v", b)
		}
		return strings.Compare(aVal, bStr)
	default:
		// For any other types, convert to string for comparison
		return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
	}
}

// ComparisonEpsilon is the tolerance under which two floating point values
// compare as equal. Anything that must agree with Compare on numbers (such
// as a ranged read standing in for a numeric predicate) has to honor it.
const ComparisonEpsilon = 1e-9

func compareFloats(a, b float64) int {
	if math.IsNaN(a) {
		if math.IsNaN(b) {
			return 0
		}
		return -1
	}
	if math.IsNaN(b) {
		return 1
	}

	diff := a - b
	if math.Abs(diff) < ComparisonEpsilon {
		return 0
	} else if diff < 0 {
		return -1
	}
	return 1
}

func isConvertibleNumber(v any) bool {
	switch v.(type) {
	case uint, uint8, uint16, uint32, uint64,
		int, int8, int16, int32, int64,
		float32, float64:
		return true
	}
	return false
}
