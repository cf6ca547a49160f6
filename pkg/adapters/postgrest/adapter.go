// Package postgrest provides a data source adapter for PostgREST-style
// hosted Postgres projects (Supabase and compatible platforms). Unlike the
// flat-file and generic REST sources, this backend accepts pushed-down
// predicates: queries are translated to PostgREST filter parameters and the
// backend does the filtering.
package postgrest

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/gridlens-labs/gridlens/pkg/adapter"
	"github.com/gridlens-labs/gridlens/pkg/core"
	"github.com/gridlens-labs/gridlens/pkg/infer"
	"github.com/gridlens-labs/gridlens/pkg/restgen"
	"github.com/gridlens-labs/gridlens/pkg/sanitize"
)

var capabilities = core.Capabilities{
	SupportsRealtime:    true,
	SupportsFiltering:   true,
	SupportsAggregation: false,
	MaxRowsPerQuery:     1000,
}

// Adapter implements adapter.Adapter for PostgREST projects.
type Adapter struct {
	adapter.Session
	cfg      core.SourceConfig
	endpoint string
}

// New creates a disconnected PostgREST adapter. If logger is nil, a discard
// logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{Session: adapter.Session{Logger: logger}}
}

func (a *Adapter) Type() core.SourceType           { return core.SourcePostgREST }
func (a *Adapter) Capabilities() core.Capabilities { return capabilities }

func validate(cfg core.SourceConfig) error {
	if cfg.ProjectURL == "" {
		return &core.ConfigError{Field: "projectUrl", Reason: "is required for PostgREST sources"}
	}
	u, err := url.Parse(cfg.ProjectURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &core.ConfigError{Field: "projectUrl", Reason: "must be a valid http(s) project URL"}
	}
	if cfg.APIKey == "" {
		return &core.ConfigError{Field: "apiKey", Reason: "is required for PostgREST sources"}
	}
	if cfg.Table == "" {
		return &core.ConfigError{Field: "table", Reason: "is required for PostgREST sources"}
	}
	if !sanitize.ValidIdentifier(cfg.Table) {
		return &core.ConfigError{Field: "table", Reason: "must be a valid identifier"}
	}
	return nil
}

// Connect validates the config and seeds the cache with an initial page.
func (a *Adapter) Connect(ctx context.Context, cfg core.SourceConfig) error {
	if err := validate(cfg); err != nil {
		return err
	}

	a.cfg = cfg
	a.endpoint = strings.TrimRight(cfg.ProjectURL, "/") + "/rest/v1/" + cfg.Table
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

// TestConnection probes the table endpoint with a zero-row request.
func (a *Adapter) TestConnection(ctx context.Context) bool {
	rctx, cancel := a.RequestContext(ctx)
	defer cancel()

	var probe []core.Row
	return a.GetJSON(rctx, a.endpoint+"?limit=1", a.headers(), &probe) == nil
}

func (a *Adapter) FetchSchema(ctx context.Context) (*core.SchemaInfo, error) {
	return a.FreshSchema(ctx, a.fetch)
}

// FetchData pushes query constraints down to the backend. An unconstrained
// read is served from the freshness cache; a constrained one always asks
// the backend, which sees the freshest data by definition.
func (a *Adapter) FetchData(ctx context.Context, q *core.Query) (*core.NormalizedData, error) {
	if q.IsZero() {
		return a.FetchClientSide(ctx, nil, capabilities.MaxRowsPerQuery, a.fetch)
	}

	if !a.Connected() {
		return nil, &core.NotConnectedError{Op: "fetchData"}
	}

	params, err := restgen.Params(q, capabilities.MaxRowsPerQuery)
	if err != nil {
		return nil, err
	}

	rctx, cancel := a.RequestContext(ctx)
	defer cancel()

	var rows []core.Row
	if err := a.GetJSON(rctx, a.endpoint+"?"+params.Encode(), a.headers(), &rows); err != nil {
		return nil, err
	}

	columns := q.Columns
	if len(columns) == 0 {
		columns = columnNames(rows)
	}
	return adapter.NewResult(a.Name(), columns, rows), nil
}

// headers carries the project API key in both forms PostgREST platforms
// accept.
func (a *Adapter) headers() map[string]string {
	return map[string]string{
		"apikey":        a.cfg.APIKey,
		"Authorization": "Bearer " + a.cfg.APIKey,
		"Accept":        "application/json",
	}
}

// fetch pulls an unfiltered page for the cache and schema inference.
func (a *Adapter) fetch(ctx context.Context) ([]core.Row, *core.SchemaInfo, error) {
	params, err := restgen.Params(nil, capabilities.MaxRowsPerQuery)
	if err != nil {
		return nil, nil, err
	}

	var rows []core.Row
	if err := a.GetJSON(ctx, a.endpoint+"?"+params.Encode(), a.headers(), &rows); err != nil {
		return nil, nil, err
	}
	return rows, infer.Schema(rows), nil
}

func columnNames(rows []core.Row) []string {
	if len(rows) == 0 {
		return nil
	}
	columns := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	return columns
}

var _ adapter.Adapter = (*Adapter)(nil)
