// Package gameanalytics provides a data source adapter for the
// GameAnalytics metrics API. Metric rows are read for one game and queried
// client-side; the API offers no predicate pushdown.
package gameanalytics

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/gridlens-labs/gridlens/pkg/adapter"
	"github.com/gridlens-labs/gridlens/pkg/core"
	"github.com/gridlens-labs/gridlens/pkg/infer"
)

var capabilities = core.Capabilities{
	SupportsRealtime:    false,
	SupportsFiltering:   true,
	SupportsAggregation: false,
	MaxRowsPerQuery:     10_000,
}

// gameIDPattern is the allow-list for game IDs, which are interpolated into
// the request path.
var gameIDPattern = regexp.MustCompile(`^[0-9]+$`)

// metricsResponse is the API reply envelope.
type metricsResponse struct {
	Results []map[string]any `json:"results"`
	Errors  []string         `json:"errors"`
}

// Adapter implements adapter.Adapter for GameAnalytics games.
type Adapter struct {
	adapter.Session
	cfg      core.SourceConfig
	endpoint string
}

// New creates a disconnected GameAnalytics adapter. If logger is nil, a
// discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{Session: adapter.Session{Logger: logger}}
}

func (a *Adapter) Type() core.SourceType           { return core.SourceGameAnalytics }
func (a *Adapter) Capabilities() core.Capabilities { return capabilities }

func validate(cfg core.SourceConfig) error {
	if cfg.GameID == "" {
		return &core.ConfigError{Field: "gameId", Reason: "is required for GameAnalytics sources"}
	}
	if !gameIDPattern.MatchString(cfg.GameID) {
		return &core.ConfigError{Field: "gameId", Reason: "must be numeric"}
	}
	if cfg.APIKey == "" {
		return &core.ConfigError{Field: "apiKey", Reason: "is required for GameAnalytics sources"}
	}
	return nil
}

// baseURL resolves the API host. Options["endpoint"] overrides the public
// host for gateways and tests.
func baseURL(cfg core.SourceConfig) string {
	if ep := cfg.Options["endpoint"]; ep != "" {
		return strings.TrimRight(ep, "/")
	}
	return "https://api.gameanalytics.com"
}

// Connect validates the config and pulls the metrics once.
func (a *Adapter) Connect(ctx context.Context, cfg core.SourceConfig) error {
	if err := validate(cfg); err != nil {
		return err
	}

	a.cfg = cfg
	a.endpoint = fmt.Sprintf("%s/v2/games/%s/metrics", baseURL(cfg), cfg.GameID)
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

// TestConnection probes the metrics endpoint without touching cached state.
func (a *Adapter) TestConnection(ctx context.Context) bool {
	rctx, cancel := a.RequestContext(ctx)
	defer cancel()

	var resp metricsResponse
	return a.GetJSON(rctx, a.endpoint, a.headers(), &resp) == nil
}

func (a *Adapter) FetchSchema(ctx context.Context) (*core.SchemaInfo, error) {
	return a.FreshSchema(ctx, a.fetch)
}

func (a *Adapter) FetchData(ctx context.Context, q *core.Query) (*core.NormalizedData, error) {
	return a.FetchClientSide(ctx, q, capabilities.MaxRowsPerQuery, a.fetch)
}

func (a *Adapter) headers() map[string]string {
	return map[string]string{
		"Authorization": a.cfg.APIKey,
		"Accept":        "application/json",
	}
}

// fetch pulls the metric rows for the configured game.
func (a *Adapter) fetch(ctx context.Context) ([]core.Row, *core.SchemaInfo, error) {
	var resp metricsResponse
	if err := a.GetJSON(ctx, a.endpoint, a.headers(), &resp); err != nil {
		return nil, nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, nil, &core.QueryError{
			Source:  a.Name(),
			Message: strings.Join(resp.Errors, "; "),
		}
	}

	rows := make([]core.Row, 0, len(resp.Results))
	for _, result := range resp.Results {
		rows = append(rows, core.Row(result))
	}
	return rows, infer.Schema(rows), nil
}

var _ adapter.Adapter = (*Adapter)(nil)
