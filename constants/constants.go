package constants

const (
	// UnnamedKeyToken is the synthetic selector field used when a table's
	// primary key is unnamed (auto-increment or out-of-band); the record's raw
	// key supplies the identity instead of a value property.
	UnnamedKeyToken = "*key*"

	// SelectorSeparator joins selector field values into a row selector.
	// A literal separator or escape character inside a component is escaped,
	// see engine.RowSelector.
	SelectorSeparator = "|"
	SelectorEscape    = "\\"

	// MinPageSize is the smallest window used by the discovery pass; the
	// firstrun read always fetches at least this many records so column
	// resolution sees a meaningful sample.
	MinPageSize = 50

	// DiscoverySampleSize caps how many records the discovery pass inspects
	// when resolving column types.
	DiscoverySampleSize = 200
)

// viper keys
const (
	ConfigFolder   = "CONFIG_FOLDER"
	DatabasePath   = "DATABASE_PATH"
	PageSize       = "PAGE_SIZE"
	WorkerDisabled = "WORKER_DISABLED"
)
