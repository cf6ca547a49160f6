package core

import "time"

// SourceType identifies a backend family. Dispatch on SourceType goes
// through an adapter.Registry, never through raw string comparison at call
// sites.
type SourceType string

// Built-in source types.
const (
	SourceCSVFile       SourceType = "csvfile"
	SourceRESTAPI       SourceType = "rest"
	SourcePostgREST     SourceType = "postgrest"
	SourceSQLProxy      SourceType = "sqlproxy"
	SourcePostgres      SourceType = "postgres"
	SourcePlayFab       SourceType = "playfab"
	SourceGameAnalytics SourceType = "gameanalytics"
	SourceRedis         SourceType = "redis"
)

// SourceConfig holds everything needed to connect to one data source.
// It is immutable once passed to Connect; adapters copy what they keep.
// Only the fields relevant to the declared Type need to be set.
type SourceConfig struct {
	Name string
	Type SourceType

	// File sources
	Path string

	// HTTP sources
	URL         string
	APIKey      string
	BearerToken string
	Username    string
	Password    string

	// PostgREST / SQL sources
	ProjectURL string
	Table      string
	Schema     string

	// SQL proxy
	ProxyURL     string
	ConnectionID string

	// Direct database
	Host     string
	Port     int
	Database string

	// Game backends
	TitleID   string
	SecretKey string
	GameID    string
	SegmentID string

	// Redis
	Addr       string
	DB         int
	KeyPattern string

	// RefreshInterval bounds how long cached rows are served before a
	// re-fetch. Zero means the 5 minute default.
	RefreshInterval time.Duration

	// RequestTimeout bounds each network call. Zero means the 30 second
	// default. Disconnect cancels in-flight calls regardless.
	RequestTimeout time.Duration

	// Options carries backend-specific settings that don't warrant a field.
	Options map[string]string
}

// Row is a single record keyed by column name. Rows handed out by adapters
// are snapshots; callers may read them freely but must not assume they
// alias the adapter's cache.
type Row = map[string]any

// ColumnType is the semantic type inferred for a column from sampled data.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
	TypeDate    ColumnType = "date"
	TypeUnknown ColumnType = "unknown"
)

// ColumnInfo describes one inferred column. Type is a vote over non-null
// sampled values; Nullable is true iff any sampled value was nil.
type ColumnInfo struct {
	Name         string
	Type         ColumnType
	Nullable     bool
	SampleValues []any
}

// SchemaInfo is the derived schema of a source. It is recomputed on every
// refresh and is never authoritative.
type SchemaInfo struct {
	Columns    []ColumnInfo
	RowCount   int
	SampleData []Row
}

// Metadata describes one fetch result.
type Metadata struct {
	Source    string
	FetchedAt time.Time
	RowCount  int
}

// NormalizedData is the sole output shape of every adapter, regardless of
// backend.
type NormalizedData struct {
	Columns  []string
	Rows     []Row
	Metadata Metadata
}

// Capabilities is a static, per-backend declaration of what an adapter can
// do. There is no runtime negotiation; callers read this to decide which
// affordances to offer.
type Capabilities struct {
	SupportsRealtime    bool
	SupportsFiltering   bool
	SupportsAggregation bool
	MaxRowsPerQuery     int
}
