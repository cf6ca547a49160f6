// Package csvfile provides a data source adapter for local tabular file
// uploads: CSV, TSV and XLSX workbooks. Files have no queryable backend, so
// all filtering happens client-side against the cached rows; a refresh
// simply re-reads the file.
package csvfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gridlens-labs/gridlens/pkg/adapter"
	"github.com/gridlens-labs/gridlens/pkg/core"
	"github.com/gridlens-labs/gridlens/pkg/infer"
)

var capabilities = core.Capabilities{
	SupportsRealtime:    false,
	SupportsFiltering:   true,
	SupportsAggregation: false,
	MaxRowsPerQuery:     100_000,
}

// Adapter implements adapter.Adapter for local file sources.
type Adapter struct {
	adapter.Session
	cfg core.SourceConfig
}

// New creates a disconnected file adapter. If logger is nil, a discard
// logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{Session: adapter.Session{Logger: logger}}
}

// Type identifies the backend family.
func (a *Adapter) Type() core.SourceType { return core.SourceCSVFile }

// Capabilities returns the static capability declaration.
func (a *Adapter) Capabilities() core.Capabilities { return capabilities }

// validate checks required config before any file access.
func validate(cfg core.SourceConfig) error {
	if cfg.Path == "" {
		return &core.ConfigError{Field: "path", Reason: "is required for file sources"}
	}
	switch strings.ToLower(filepath.Ext(cfg.Path)) {
	case ".csv", ".tsv", ".xlsx":
		return nil
	default:
		return &core.ConfigError{Field: "path", Reason: "must point to a .csv, .tsv or .xlsx file"}
	}
}

// Connect validates the config and performs the initial read.
func (a *Adapter) Connect(ctx context.Context, cfg core.SourceConfig) error {
	if err := validate(cfg); err != nil {
		return err
	}

	a.cfg = cfg
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

// Disconnect releases cached rows and returns the adapter to its freshly
// constructed state.
func (a *Adapter) Disconnect() error {
	a.Session.Close()
	return nil
}

// TestConnection reports whether the file is readable.
func (a *Adapter) TestConnection(_ context.Context) bool {
	info, err := os.Stat(a.cfg.Path)
	return err == nil && !info.IsDir()
}

// FetchSchema returns the schema inferred from the freshest read.
func (a *Adapter) FetchSchema(ctx context.Context) (*core.SchemaInfo, error) {
	return a.FreshSchema(ctx, a.fetch)
}

// FetchData re-reads the file if the cache is stale, then evaluates the
// query in memory.
func (a *Adapter) FetchData(ctx context.Context, q *core.Query) (*core.NormalizedData, error) {
	return a.FetchClientSide(ctx, q, capabilities.MaxRowsPerQuery, a.fetch)
}

// fetch reads and parses the configured file.
func (a *Adapter) fetch(ctx context.Context) ([]core.Row, *core.SchemaInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		rows []core.Row
		err  error
	)
	switch strings.ToLower(filepath.Ext(a.cfg.Path)) {
	case ".csv":
		rows, err = readDelimited(a.cfg.Path, ',')
	case ".tsv":
		rows, err = readDelimited(a.cfg.Path, '\t')
	case ".xlsx":
		rows, err = readWorkbook(a.cfg.Path, a.cfg.Options["sheet"])
	default:
		err = fmt.Errorf("unsupported file extension %q", filepath.Ext(a.cfg.Path))
	}
	if err != nil {
		return nil, nil, err
	}

	return rows, infer.Schema(rows), nil
}

var _ adapter.Adapter = (*Adapter)(nil)
