// Package sqlproxy provides a data source adapter for relational databases
// reached through the GridLens SQL proxy. The adapter never opens a
// database connection itself: it builds read-only SQL with pkg/sqlgen and
// posts it to the proxy as a JSON envelope keyed by connection ID.
package sqlproxy

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/gridlens-labs/gridlens/pkg/adapter"
	"github.com/gridlens-labs/gridlens/pkg/core"
	"github.com/gridlens-labs/gridlens/pkg/infer"
	"github.com/gridlens-labs/gridlens/pkg/sanitize"
	"github.com/gridlens-labs/gridlens/pkg/sqlgen"
)

// QueryPath is the proxy's fixed query endpoint.
const QueryPath = "/api/query"

var capabilities = core.Capabilities{
	SupportsRealtime:    false,
	SupportsFiltering:   true,
	SupportsAggregation: true,
	MaxRowsPerQuery:     10_000,
}

// connectionIDPattern is the allow-list for external connection IDs.
var connectionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// envelope is the request shape the proxy accepts.
type envelope struct {
	ConnectionID string `json:"connectionId"`
	SQL          string `json:"sql"`
}

// response is the proxy's reply shape.
type response struct {
	Success  bool       `json:"success"`
	Data     []core.Row `json:"data,omitempty"`
	Error    string     `json:"error,omitempty"`
	RowCount int        `json:"rowCount,omitempty"`
}

// Adapter implements adapter.Adapter for proxied SQL databases.
type Adapter struct {
	adapter.Session
	cfg      core.SourceConfig
	queryURL string
	builder  sqlgen.Builder
}

// New creates a disconnected SQL proxy adapter. If logger is nil, a discard
// logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{Session: adapter.Session{Logger: logger}}
}

func (a *Adapter) Type() core.SourceType           { return core.SourceSQLProxy }
func (a *Adapter) Capabilities() core.Capabilities { return capabilities }

func validate(cfg core.SourceConfig) error {
	if cfg.ProxyURL == "" {
		return &core.ConfigError{Field: "proxyUrl", Reason: "is required for proxied SQL sources"}
	}
	u, err := url.Parse(cfg.ProxyURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &core.ConfigError{Field: "proxyUrl", Reason: "must be a valid http(s) URL"}
	}
	if cfg.ConnectionID == "" {
		return &core.ConfigError{Field: "connectionId", Reason: "is required for proxied SQL sources"}
	}
	if !connectionIDPattern.MatchString(cfg.ConnectionID) {
		return &core.ConfigError{Field: "connectionId", Reason: "must be alphanumeric"}
	}
	if cfg.Table == "" {
		return &core.ConfigError{Field: "table", Reason: "is required for proxied SQL sources"}
	}
	if !sanitize.ValidIdentifier(cfg.Table) {
		return &core.ConfigError{Field: "table", Reason: "must be a valid identifier"}
	}
	if cfg.Schema != "" && !sanitize.ValidIdentifier(cfg.Schema) {
		return &core.ConfigError{Field: "schema", Reason: "must be a valid identifier"}
	}
	return nil
}

// Connect validates the config and seeds the cache with an initial page.
func (a *Adapter) Connect(ctx context.Context, cfg core.SourceConfig) error {
	if err := validate(cfg); err != nil {
		return err
	}

	a.cfg = cfg
	a.queryURL = strings.TrimRight(cfg.ProxyURL, "/") + QueryPath
	a.builder = sqlgen.Builder{
		Table:   cfg.Table,
		Schema:  cfg.Schema,
		MaxRows: capabilities.MaxRowsPerQuery,
	}
	a.Session.Begin(cfg)

	rctx, cancel := a.RequestContext(ctx)
	defer cancel()

	rows, schema, err := a.fetch(rctx)
	if err != nil {
		a.Session.Abort()
		return &core.ConnectionError{Source: cfg.Name, Err: err}
	}
	a.Session.Complete(rows, schema)
	return nil
}

func (a *Adapter) Disconnect() error {
	a.Session.Close()
	return nil
}

// TestConnection runs a trivial probe statement through the proxy.
func (a *Adapter) TestConnection(ctx context.Context) bool {
	rctx, cancel := a.RequestContext(ctx)
	defer cancel()

	_, err := a.execute(rctx, "SELECT 1")
	return err == nil
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

	sql, err := a.builder.Build(q)
	if err != nil {
		return nil, err
	}

	rctx, cancel := a.RequestContext(ctx)
	defer cancel()

	rows, err := a.execute(rctx, sql)
	if err != nil {
		return nil, err
	}

	columns := q.Columns
	if len(columns) == 0 {
		columns = schemaColumns(infer.Schema(rows))
	}
	return adapter.NewResult(a.Name(), columns, rows), nil
}

// QueryRaw runs a caller-supplied statement through the proxy. The
// statement must be read-only; anything else is rejected before it leaves
// the process. The proxy applies the same check server-side.
func (a *Adapter) QueryRaw(ctx context.Context, sql string) (*core.NormalizedData, error) {
	if !a.Connected() {
		return nil, &core.NotConnectedError{Op: "queryRaw"}
	}
	if err := sqlgen.EnsureReadOnly(sql); err != nil {
		return nil, err
	}

	rctx, cancel := a.RequestContext(ctx)
	defer cancel()

	rows, err := a.execute(rctx, sql)
	if err != nil {
		return nil, err
	}
	return adapter.NewResult(a.Name(), schemaColumns(infer.Schema(rows)), rows), nil
}

// fetch pulls an unfiltered page for the cache and schema inference.
func (a *Adapter) fetch(ctx context.Context) ([]core.Row, *core.SchemaInfo, error) {
	sql, err := a.builder.Build(nil)
	if err != nil {
		return nil, nil, err
	}
	rows, err := a.execute(ctx, sql)
	if err != nil {
		return nil, nil, err
	}
	return rows, infer.Schema(rows), nil
}

// execute posts one envelope and unwraps the proxy's reply.
func (a *Adapter) execute(ctx context.Context, sql string) ([]core.Row, error) {
	a.Logger.Debug("proxy query",
		slog.String("source", a.Name()),
		slog.String("sql", sql))

	var resp response
	err := a.PostJSON(ctx, a.queryURL, nil, envelope{
		ConnectionID: a.cfg.ConnectionID,
		SQL:          sql,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &core.QueryError{Source: a.Name(), Message: resp.Error}
	}
	return resp.Data, nil
}

func schemaColumns(schema *core.SchemaInfo) []string {
	columns := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		columns[i] = c.Name
	}
	return columns
}

var _ adapter.Adapter = (*Adapter)(nil)
