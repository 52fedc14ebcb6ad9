package types

import "github.com/keyhole-db/keyhole/utils"

// KeyDescriptor describes a table's primary key.
//
// A named key has one or more key-path components stored inside the record
// value. An unnamed key lives outside the value (auto-increment counter or
// caller-supplied out-of-band key) and has an empty KeyPath.
type KeyDescriptor struct {
	KeyPath       []string `json:"key_path"`
	AutoIncrement bool     `json:"auto_increment"`
}

func (k KeyDescriptor) Named() bool {
	return len(k.KeyPath) > 0
}

func (k KeyDescriptor) Compound() bool {
	return len(k.KeyPath) > 1
}

// IndexDescriptor is a declared secondary index on a single (possibly
// dot-path) field.
type IndexDescriptor struct {
	Field string `json:"field"`
}

// TableSchema is the per-table metadata supplied by the store schema
// provider, plus the column shape learned by the discovery pass. Columns is
// nil until a discovery pass has run; stores are schema-less, so the
// effective column set can only be sampled from data.
type TableSchema struct {
	Table      string              `json:"table"`
	PrimaryKey KeyDescriptor       `json:"primary_key"`
	Indexes    []IndexDescriptor   `json:"indexes"`
	Columns    map[string]DataType `json:"columns,omitempty"`
}

// HasIndex reports whether field is backed by a declared index or is a
// component of the primary key.
func (s *TableSchema) HasIndex(field string) bool {
	if _, found := utils.ArrayContains(s.Indexes, func(idx IndexDescriptor) bool {
		return idx.Field == field
	}); found {
		return true
	}
	_, found := utils.ArrayContains(s.PrimaryKey.KeyPath, func(part string) bool {
		return part == field
	})
	return found
}
