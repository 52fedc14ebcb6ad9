package typeutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyhole-db/keyhole/types"
)

func TestReformatValue(t *testing.T) {
	testCases := []struct {
		name     string
		dataType types.DataType
		input    any
		expected any
		wantErr  bool
	}{
		{"bool_from_string", types.Bool, "true", true, false},
		{"bool_invalid", types.Bool, "maybe", nil, true},
		{"int_from_string", types.Int64, "42", int64(42), false},
		{"int_invalid", types.Int64, "4.x", nil, true},
		{"float_from_string", types.Float64, "3.14", 3.14, false},
		{"float_from_int", types.Float64, 7, float64(7), false},
		{"float_invalid", types.Float64, "abc", nil, true},
		{"string_from_number", types.String, 12, "12", false},
		{"passthrough_unknown_type", types.Object, "x", "x", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ReformatValue(tc.dataType, tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, out)
		})
	}

	t.Run("nil_value", func(t *testing.T) {
		_, err := ReformatValue(types.Float64, nil)
		assert.ErrorIs(t, err, ErrNullValue)
	})
}

func TestReformatDate(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		expected time.Time
		wantErr  bool
	}{
		{"rfc3339", "2024-03-05T10:30:00Z", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC), false},
		{"date_only", "2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), false},
		{"space_separated", "2024-03-05 10:30:00", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC), false},
		{"garbage", "not a date", time.Time{}, true},
		{"empty", "", time.Time{}, true},
		{"wrong_type", 42, time.Time{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ReformatDate(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, out.Equal(tc.expected), "got %v, want %v", out, tc.expected)
		})
	}

	t.Run("time_passthrough", func(t *testing.T) {
		now := time.Now()
		out, err := ReformatDate(now)
		require.NoError(t, err)
		assert.True(t, out.Equal(now))
	})
}

func TestIsTimestampString(t *testing.T) {
	assert.True(t, IsTimestampString("2024-03-05T10:30:00Z"))
	assert.True(t, IsTimestampString("2024-03-05"))
	assert.False(t, IsTimestampString("hello"))
	assert.False(t, IsTimestampString(""))
}
