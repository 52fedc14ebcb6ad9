package engine

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyhole-db/keyhole/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 30, 0, 123456789, time.UTC)
	original := types.Record{
		"name":   "Ada",
		"n":      float64(3),
		"active": true,
		"blob":   []byte{0x00, 0x01, 0xFF},
		"at":     at,
		"nested": map[string]any{"inner": []byte("hi")},
		"list":   []any{[]byte{9}, "plain", float64(1)},
	}

	restored := Decode(Encode([]types.Record{original}))
	require.Len(t, restored, 1)
	record := restored[0]

	assert.Equal(t, "Ada", record["name"])
	assert.Equal(t, float64(3), record["n"])
	assert.Equal(t, true, record["active"])
	assert.Equal(t, []byte{0x00, 0x01, 0xFF}, record["blob"])
	assert.True(t, record["at"].(time.Time).Equal(at))
	assert.Equal(t, []byte("hi"), record["nested"].(map[string]any)["inner"])
	assert.Equal(t, []any{[]byte{9}, "plain", float64(1)}, record["list"])
}

// A JSON-framing boundary turns []byte into bare base64 and time.Time into a
// plain string. Tagged values survive the crossing and come back with their
// original types.
func TestCodecSurvivesJSONFraming(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	original := types.Record{
		"blob": []byte("binary payload"),
		"at":   at,
		"name": "Ada",
	}

	framed, err := json.Marshal(Encode([]types.Record{original}))
	require.NoError(t, err)

	crossed := []types.Record{}
	require.NoError(t, json.Unmarshal(framed, &crossed))

	restored := Decode(crossed)
	require.Len(t, restored, 1)
	assert.Equal(t, []byte("binary payload"), restored[0]["blob"])
	assert.True(t, restored[0]["at"].(time.Time).Equal(at))
	assert.Equal(t, "Ada", restored[0]["name"])
}

// Without the codec the same crossing silently corrupts: this is the flaw
// the tagged shape exists for.
func TestJSONFramingAloneCorruptsBinary(t *testing.T) {
	original := types.Record{"blob": []byte("binary payload")}

	framed, err := json.Marshal([]types.Record{original})
	require.NoError(t, err)

	crossed := []types.Record{}
	require.NoError(t, json.Unmarshal(framed, &crossed))

	_, isString := crossed[0]["blob"].(string)
	assert.True(t, isString)
}

func TestEncodeDoesNotMutateInput(t *testing.T) {
	original := types.Record{
		"blob":   []byte{1, 2},
		"nested": map[string]any{"inner": []byte{3}},
	}

	Encode([]types.Record{original})

	assert.Equal(t, []byte{1, 2}, original["blob"])
	assert.Equal(t, []byte{3}, original["nested"].(map[string]any)["inner"])
}

func TestDecodeLeavesLookalikesAlone(t *testing.T) {
	// a user map that happens to carry $type but not the tagged shape
	record := types.Record{
		"three_keys": map[string]any{"$type": "binary", "$value": "aGk=", "extra": true},
		"wrong_tag":  map[string]any{"$type": "custom", "$value": "x"},
		"no_value":   map[string]any{"$type": "binary", "other": "x"},
	}

	restored := Decode([]types.Record{record})[0]

	assert.Equal(t, record["three_keys"], restored["three_keys"])
	assert.Equal(t, record["wrong_tag"], restored["wrong_tag"])
	assert.Equal(t, record["no_value"], restored["no_value"])
}
