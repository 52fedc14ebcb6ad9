package types

// Direction orders a query result.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Target identifies the logical data set a query or selection operates
// against. Results from a superseded query are discarded on a target (or
// request-context) mismatch.
type Target struct {
	Database string `json:"database"`
	Table    string `json:"table"`
}

func (t Target) ID() string {
	return t.Database + "." + t.Table
}

// QueryRequest is one read against a single table. Owned transiently per
// query, never persisted.
type QueryRequest struct {
	Database string `json:"database"`
	Table    string `json:"table" validate:"required"`
	// AddUnnamedPK materializes the record's raw key under the synthetic
	// *key* field so unnamed-key tables still get a stable row identity.
	AddUnnamedPK bool      `json:"add_unnamed_pk"`
	Filters      []Filter  `json:"filters"`
	Order        string    `json:"order"`
	Direction    Direction `json:"direction" validate:"omitempty,oneof=asc desc"`
	// Offset is 1-based; zero is treated as 1.
	Offset int `json:"offset" validate:"gte=0"`
	Limit  int `json:"limit" validate:"gte=0"`
	// Encode asks for codec framing of the result. The execution channel has
	// the final word: inline runs never encode, lossy transports always do.
	Encode bool `json:"encode"`
}

func (q QueryRequest) Target() Target {
	return Target{Database: q.Database, Table: q.Table}
}

// QueryResult is the paginated answer to a QueryRequest. Total counts every
// record matching the filter set before pagination; Data holds at most Limit
// records starting at Offset.
type QueryResult struct {
	Data    []Record `json:"data"`
	Total   int      `json:"total"`
	Encoded bool     `json:"encoded"`
}
