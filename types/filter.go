package types

// FilterMethod is the closed set of per-field search criteria a user can
// author. Methods carry their literal type: a numeric method parses its
// search text as a number, a date method as a timestamp, and so on.
type FilterMethod string

const (
	MethodEquals           FilterMethod = "equals"
	MethodEqualsIgnoreCase FilterMethod = "equalsIgnoreCase"
	MethodStartsWith       FilterMethod = "startsWith"
	MethodContains         FilterMethod = "contains"
	MethodRegexp           FilterMethod = "regexp"

	MethodNumberEquals    FilterMethod = "numberEquals"
	MethodNumberNotEquals FilterMethod = "numberNotEquals"
	MethodNumberGt        FilterMethod = "numberGt"
	MethodNumberGte       FilterMethod = "numberGte"
	MethodNumberLt        FilterMethod = "numberLt"
	MethodNumberLte       FilterMethod = "numberLte"
	MethodNumberBetween   FilterMethod = "numberBetween"

	MethodDateEquals  FilterMethod = "dateEquals"
	MethodDateBefore  FilterMethod = "dateBefore"
	MethodDateAfter   FilterMethod = "dateAfter"
	MethodDateBetween FilterMethod = "dateBetween"

	MethodBoolIs FilterMethod = "boolIs"

	MethodEmpty    FilterMethod = "empty"
	MethodNotEmpty FilterMethod = "notEmpty"
)

// MethodProps describes the static shape of a filter method.
type MethodProps struct {
	Label string
	// Literal is the type the search text must parse as. Null means the
	// method takes no literal at all (empty / not-empty).
	Literal DataType
	// Arity is how many literals the search text carries. Between methods
	// take two, empty methods take zero, everything else one.
	Arity int
	// Pushdown reports whether the method is expressible as a native ranged
	// read on a single indexed field.
	Pushdown bool
}

// Methods is the authoritative method table. A FilterMethod absent from this
// map is unknown and the filter carrying it is invalid.
var Methods = map[FilterMethod]MethodProps{
	MethodEquals:           {Label: "equals", Literal: String, Arity: 1, Pushdown: true},
	MethodEqualsIgnoreCase: {Label: "equals (ignore case)", Literal: String, Arity: 1},
	MethodStartsWith:       {Label: "starts with", Literal: String, Arity: 1, Pushdown: true},
	MethodContains:         {Label: "contains", Literal: String, Arity: 1},
	MethodRegexp:           {Label: "matches regexp", Literal: String, Arity: 1},

	MethodNumberEquals:    {Label: "=", Literal: Float64, Arity: 1, Pushdown: true},
	MethodNumberNotEquals: {Label: "≠", Literal: Float64, Arity: 1},
	MethodNumberGt:        {Label: ">", Literal: Float64, Arity: 1, Pushdown: true},
	MethodNumberGte:       {Label: "≥", Literal: Float64, Arity: 1, Pushdown: true},
	MethodNumberLt:        {Label: "<", Literal: Float64, Arity: 1, Pushdown: true},
	MethodNumberLte:       {Label: "≤", Literal: Float64, Arity: 1, Pushdown: true},
	MethodNumberBetween:   {Label: "between", Literal: Float64, Arity: 2, Pushdown: true},

	// date values live in records as free-form strings, a native range
	// cannot serve them
	MethodDateEquals:  {Label: "date =", Literal: Timestamp, Arity: 1},
	MethodDateBefore:  {Label: "date before", Literal: Timestamp, Arity: 1},
	MethodDateAfter:   {Label: "date after", Literal: Timestamp, Arity: 1},
	MethodDateBetween: {Label: "date between", Literal: Timestamp, Arity: 2},

	MethodBoolIs: {Label: "is", Literal: Bool, Arity: 1, Pushdown: true},

	MethodEmpty:    {Label: "is empty", Literal: Null, Arity: 0},
	MethodNotEmpty: {Label: "is not empty", Literal: Null, Arity: 0},
}

// Filter is a single user-authored search criterion against one (possibly
// nested, dot-separated) field.
type Filter struct {
	Field  string       `json:"field"`
	Method FilterMethod `json:"method"`
	Search string       `json:"search"`
	// Valid is derived from Search and Method; an invalid filter never
	// reaches the planner as an active predicate.
	Valid bool `json:"valid"`
}
