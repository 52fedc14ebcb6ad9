package typeutils

import (
	"errors"
	"fmt"

	"github.com/spf13/cast"

	"github.com/keyhole-db/keyhole/types"
)

var ErrNullValue = errors.New("null value")

// ReformatValue coerces a raw value into dataType. Used when parsing filter
// literals so that validation and predicate evaluation share one set of
// coercion rules.
func ReformatValue(dataType types.DataType, v any) (any, error) {
	if v == nil {
		return nil, ErrNullValue
	}

	switch dataType {
	case types.Bool:
		out, err := cast.ToBoolE(v)
		if err != nil {
			return nil, fmt.Errorf("failed to reformat %v as boolean: %w", v, err)
		}
		return out, nil
	case types.Int64:
		out, err := cast.ToInt64E(v)
		if err != nil {
			return nil, fmt.Errorf("failed to reformat %v as integer: %w", v, err)
		}
		return out, nil
	case types.Float64:
		out, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fmt.Errorf("failed to reformat %v as number: %w", v, err)
		}
		return out, nil
	case types.Timestamp:
		return ReformatDate(v)
	case types.String:
		return cast.ToStringE(v)
	default:
		return v, nil
	}
}
