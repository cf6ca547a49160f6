// Package restapi provides a data source adapter for generic JSON REST
// endpoints. The endpoint is treated as an opaque row feed: it either
// returns an array of objects or an object wrapping one; there is no
// predicate pushdown, so queries evaluate client-side.
package restapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"

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

// envelopeFields are tried in order when the endpoint wraps its rows in an
// object instead of returning a bare array.
var envelopeFields = []string{"data", "rows", "results", "items"}

// Adapter implements adapter.Adapter for generic REST endpoints.
type Adapter struct {
	adapter.Session
	cfg core.SourceConfig
}

// New creates a disconnected REST adapter. If logger is nil, a discard
// logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{Session: adapter.Session{Logger: logger}}
}

func (a *Adapter) Type() core.SourceType           { return core.SourceRESTAPI }
func (a *Adapter) Capabilities() core.Capabilities { return capabilities }

func validate(cfg core.SourceConfig) error {
	if cfg.URL == "" {
		return &core.ConfigError{Field: "url", Reason: "is required for REST sources"}
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &core.ConfigError{Field: "url", Reason: "must be a valid http(s) URL"}
	}
	return nil
}

// Connect validates the config and performs the initial fetch.
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

func (a *Adapter) Disconnect() error {
	a.Session.Close()
	return nil
}

// TestConnection probes the endpoint without touching cached state.
func (a *Adapter) TestConnection(ctx context.Context) bool {
	rctx, cancel := a.RequestContext(ctx)
	defer cancel()

	var probe any
	return a.GetJSON(rctx, a.cfg.URL, a.headers(), &probe) == nil
}

func (a *Adapter) FetchSchema(ctx context.Context) (*core.SchemaInfo, error) {
	return a.FreshSchema(ctx, a.fetch)
}

func (a *Adapter) FetchData(ctx context.Context, q *core.Query) (*core.NormalizedData, error) {
	return a.FetchClientSide(ctx, q, capabilities.MaxRowsPerQuery, a.fetch)
}

// headers builds the auth headers for the configured credential style.
func (a *Adapter) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	switch {
	case a.cfg.BearerToken != "":
		h["Authorization"] = "Bearer " + a.cfg.BearerToken
	case a.cfg.APIKey != "":
		h["X-API-Key"] = a.cfg.APIKey
	case a.cfg.Username != "":
		creds := base64.StdEncoding.EncodeToString([]byte(a.cfg.Username + ":" + a.cfg.Password))
		h["Authorization"] = "Basic " + creds
	}
	return h
}

// fetch pulls the endpoint and unwraps its row array.
func (a *Adapter) fetch(ctx context.Context) ([]core.Row, *core.SchemaInfo, error) {
	var payload any
	if err := a.GetJSON(ctx, a.cfg.URL, a.headers(), &payload); err != nil {
		return nil, nil, err
	}

	rows, err := extractRows(payload, a.cfg.Options["data_field"])
	if err != nil {
		return nil, nil, err
	}
	return rows, infer.Schema(rows), nil
}

// extractRows accepts a bare array of objects or an object that wraps one.
// field overrides the envelope-field search.
func extractRows(payload any, field string) ([]core.Row, error) {
	if field != "" {
		obj, ok := payload.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("response has no object to read field %q from", field)
		}
		inner, ok := obj[field]
		if !ok {
			return nil, fmt.Errorf("response field %q not found", field)
		}
		return toRows(inner)
	}

	if rows, err := toRows(payload); err == nil {
		return rows, nil
	}

	if obj, ok := payload.(map[string]any); ok {
		for _, name := range envelopeFields {
			if inner, found := obj[name]; found {
				return toRows(inner)
			}
		}
	}
	return nil, fmt.Errorf("response is not a row array and no known envelope field was found")
}

func toRows(v any) ([]core.Row, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON array of objects, got %T", v)
	}
	rows := make([]core.Row, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("row %d is not a JSON object", i)
		}
		rows = append(rows, core.Row(obj))
	}
	return rows, nil
}

var _ adapter.Adapter = (*Adapter)(nil)
