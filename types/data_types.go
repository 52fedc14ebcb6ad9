package types

import (
	"fmt"

	"github.com/goccy/go-json"
)

type DataType string

const (
	Null      DataType = "null"
	Bool      DataType = "boolean"
	Int64     DataType = "integer"
	Float64   DataType = "number"
	String    DataType = "string"
	Timestamp DataType = "timestamp"
	Binary    DataType = "binary"
	Array     DataType = "array"
	Object    DataType = "object"
	Unknown   DataType = "unknown"
)

// Record is a single object-store value. Stores are schema-less, so every
// field access is a runtime-typed lookup.
type Record map[string]any

func (r Record) GetStringifiedJSONValue(key string) (string, error) {
	value := r[key]
	switch value.(type) {
	case struct{}, map[string]interface{}, []interface{}:
		s, err := json.Marshal(value)
		return string(s), err
	default:
		return fmt.Sprintf("%v", r[key]), nil
	}
}

// Clone returns a shallow copy; nested values are shared.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
