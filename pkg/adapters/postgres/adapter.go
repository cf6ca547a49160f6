// Package postgres provides a data source adapter that talks to PostgreSQL
// directly over database/sql with the pgx driver. Queries push down as
// generated SQL; column metadata comes from information_schema and is
// enriched with sampled values from the fetched rows.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/gridlens-labs/gridlens/pkg/adapter"
	"github.com/gridlens-labs/gridlens/pkg/core"
	"github.com/gridlens-labs/gridlens/pkg/infer"
	"github.com/gridlens-labs/gridlens/pkg/sanitize"
	"github.com/gridlens-labs/gridlens/pkg/sqlgen"
)

var capabilities = core.Capabilities{
	SupportsRealtime:    false,
	SupportsFiltering:   true,
	SupportsAggregation: true,
	MaxRowsPerQuery:     10_000,
}

// openDB is swapped in tests to inject a mock database.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// Adapter implements adapter.Adapter for direct PostgreSQL connections.
type Adapter struct {
	adapter.Session
	cfg     core.SourceConfig
	db      *sql.DB
	builder sqlgen.Builder
}

// New creates a disconnected Postgres adapter. If logger is nil, a discard
// logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{Session: adapter.Session{Logger: logger}}
}

func (a *Adapter) Type() core.SourceType           { return core.SourcePostgres }
func (a *Adapter) Capabilities() core.Capabilities { return capabilities }

func validate(cfg core.SourceConfig) error {
	if cfg.Database == "" {
		return &core.ConfigError{Field: "database", Reason: "is required for postgres sources"}
	}
	if cfg.Table == "" {
		return &core.ConfigError{Field: "table", Reason: "is required for postgres sources"}
	}
	if !sanitize.ValidIdentifier(cfg.Table) {
		return &core.ConfigError{Field: "table", Reason: "must be a valid identifier"}
	}
	if cfg.Schema != "" && !sanitize.ValidIdentifier(cfg.Schema) {
		return &core.ConfigError{Field: "schema", Reason: "must be a valid identifier"}
	}
	return nil
}

// buildDSN constructs a key=value connection string.
func buildDSN(cfg core.SourceConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)
	if cfg.Username != "" {
		dsn += " user=" + cfg.Username
	}
	if cfg.Password != "" {
		dsn += " password=" + cfg.Password
	}
	return dsn
}

// Connect opens the database, pings it and seeds the cache with an initial
// page.
func (a *Adapter) Connect(ctx context.Context, cfg core.SourceConfig) error {
	if err := validate(cfg); err != nil {
		return err
	}

	db, err := openDB(buildDSN(cfg))
	if err != nil {
		return &core.ConnectionError{Source: cfg.Name, Err: fmt.Errorf("failed to open postgres connection: %w", err)}
	}

	a.cfg = cfg
	a.db = db
	a.builder = sqlgen.Builder{
		Table:   cfg.Table,
		Schema:  cfg.Schema,
		MaxRows: capabilities.MaxRowsPerQuery,
	}
	a.Session.Begin(cfg)

	rctx, cancel := a.RequestContext(ctx)
	defer cancel()

	if err := db.PingContext(rctx); err != nil {
		a.teardown()
		return &core.ConnectionError{Source: cfg.Name, Err: fmt.Errorf("failed to ping postgres: %w", err)}
	}

	rows, schema, err := a.fetch(rctx)
	if err != nil {
		a.teardown()
		return &core.ConnectionError{Source: cfg.Name, Err: err}
	}
	a.Session.Complete(rows, schema)
	return nil
}

func (a *Adapter) teardown() {
	a.Session.Abort()
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

func (a *Adapter) Disconnect() error {
	a.Session.Close()
	if a.db != nil {
		err := a.db.Close()
		a.db = nil
		return err
	}
	return nil
}

// TestConnection pings the database.
func (a *Adapter) TestConnection(ctx context.Context) bool {
	if a.db == nil {
		return false
	}
	rctx, cancel := a.RequestContext(ctx)
	defer cancel()
	return a.db.PingContext(rctx) == nil
}

func (a *Adapter) FetchSchema(ctx context.Context) (*core.SchemaInfo, error) {
	return a.FreshSchema(ctx, a.fetch)
}

// FetchData pushes query constraints down as generated SQL. Unconstrained
// reads are served from the freshness cache.
func (a *Adapter) FetchData(ctx context.Context, q *core.Query) (*core.NormalizedData, error) {
	if q.IsZero() {
		return a.FetchClientSide(ctx, nil, capabilities.MaxRowsPerQuery, a.fetch)
	}

	if !a.Connected() {
		return nil, &core.NotConnectedError{Op: "fetchData"}
	}

	stmt, err := a.builder.Build(q)
	if err != nil {
		return nil, err
	}

	rctx, cancel := a.RequestContext(ctx)
	defer cancel()

	rows, err := a.queryRows(rctx, stmt)
	if err != nil {
		return nil, err
	}

	columns := q.Columns
	if len(columns) == 0 {
		for _, c := range infer.Schema(rows).Columns {
			columns = append(columns, c.Name)
		}
	}
	return adapter.NewResult(a.Name(), columns, rows), nil
}

// fetch pulls an unfiltered page and derives the schema: declared column
// types from information_schema where the catalog knows them, inference
// over the sampled rows where it does not.
func (a *Adapter) fetch(ctx context.Context) ([]core.Row, *core.SchemaInfo, error) {
	stmt, err := a.builder.Build(nil)
	if err != nil {
		return nil, nil, err
	}

	rows, err := a.queryRows(ctx, stmt)
	if err != nil {
		return nil, nil, err
	}

	schema := infer.Schema(rows)
	a.overlayDeclaredTypes(ctx, schema)
	return rows, schema, nil
}

// overlayDeclaredTypes replaces inferred column types with the catalog's
// declared ones. Catalog errors are logged and ignored; inference already
// produced a usable schema.
func (a *Adapter) overlayDeclaredTypes(ctx context.Context, schema *core.SchemaInfo) {
	declared, err := a.declaredColumns(ctx)
	if err != nil {
		a.Logger.Warn("column metadata unavailable, using inferred types",
			slog.String("source", a.Name()),
			slog.String("error", err.Error()))
		return
	}
	for i := range schema.Columns {
		if d, ok := declared[schema.Columns[i].Name]; ok {
			schema.Columns[i].Type = d.columnType
			schema.Columns[i].Nullable = schema.Columns[i].Nullable || d.nullable
		}
	}
}

type declaredColumn struct {
	columnType core.ColumnType
	nullable   bool
}

const columnMetadataQuery = `
	SELECT column_name, data_type, is_nullable
	FROM information_schema.columns
	WHERE table_schema = $1 AND table_name = $2
	ORDER BY ordinal_position
`

// declaredColumns reads column metadata from information_schema.
func (a *Adapter) declaredColumns(ctx context.Context) (map[string]declaredColumn, error) {
	schema := a.cfg.Schema
	if schema == "" {
		schema = "public"
	}

	rows, err := a.db.QueryContext(ctx, columnMetadataQuery, schema, a.cfg.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	declared := make(map[string]declaredColumn)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		declared[name] = declaredColumn{
			columnType: mapDataType(dataType),
			nullable:   nullable == "YES",
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return declared, nil
}

// mapDataType folds a PostgreSQL data type into the portable column types.
func mapDataType(dataType string) core.ColumnType {
	switch strings.ToLower(dataType) {
	case "smallint", "integer", "bigint", "numeric", "decimal", "real", "double precision", "money":
		return core.TypeNumber
	case "boolean":
		return core.TypeBoolean
	case "date", "timestamp without time zone", "timestamp with time zone", "time without time zone", "time with time zone":
		return core.TypeDate
	case "text", "character varying", "character", "uuid", "json", "jsonb":
		return core.TypeString
	default:
		return core.TypeUnknown
	}
}

// queryRows runs stmt and scans the result into generic rows.
func (a *Adapter) queryRows(ctx context.Context, stmt string) ([]core.Row, error) {
	a.Logger.Debug("postgres query",
		slog.String("source", a.Name()),
		slog.String("sql", stmt))

	rows, err := a.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, &core.QueryError{Source: a.Name(), Message: err.Error()}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var out []core.Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(core.Row, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
				continue
			}
			row[name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.QueryError{Source: a.Name(), Message: err.Error()}
	}
	return out, nil
}

var _ adapter.Adapter = (*Adapter)(nil)
