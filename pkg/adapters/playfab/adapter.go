// Package playfab provides a data source adapter for the PlayFab Admin API.
// It reads player profiles for one segment and exposes them as rows; PlayFab
// has no predicate pushdown, so queries evaluate client-side.
package playfab

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

// titleIDPattern is the allow-list for PlayFab title IDs. The title ID is
// interpolated into a hostname, so anything outside this set is rejected
// outright.
var titleIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// segmentRequest is the GetPlayersInSegment request body.
type segmentRequest struct {
	SegmentID    string `json:"SegmentId"`
	MaxBatchSize int    `json:"MaxBatchSize"`
}

// segmentResponse is the PlayFab reply envelope.
type segmentResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		ProfilesInSegment int              `json:"ProfilesInSegment"`
		PlayerProfiles    []map[string]any `json:"PlayerProfiles"`
	} `json:"data"`
	ErrorMessage string `json:"errorMessage"`
}

// Adapter implements adapter.Adapter for PlayFab segments.
type Adapter struct {
	adapter.Session
	cfg      core.SourceConfig
	endpoint string
}

// New creates a disconnected PlayFab adapter. If logger is nil, a discard
// logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{Session: adapter.Session{Logger: logger}}
}

func (a *Adapter) Type() core.SourceType           { return core.SourcePlayFab }
func (a *Adapter) Capabilities() core.Capabilities { return capabilities }

func validate(cfg core.SourceConfig) error {
	if cfg.TitleID == "" {
		return &core.ConfigError{Field: "titleId", Reason: "is required for PlayFab sources"}
	}
	if !titleIDPattern.MatchString(cfg.TitleID) {
		return &core.ConfigError{Field: "titleId", Reason: "must be alphanumeric"}
	}
	if cfg.SecretKey == "" {
		return &core.ConfigError{Field: "secretKey", Reason: "is required for PlayFab sources"}
	}
	if cfg.SegmentID == "" {
		return &core.ConfigError{Field: "segmentId", Reason: "is required for PlayFab sources"}
	}
	return nil
}

// baseURL resolves the API host. Options["endpoint"] overrides the standard
// per-title host for self-hosted gateways and tests.
func baseURL(cfg core.SourceConfig) string {
	if ep := cfg.Options["endpoint"]; ep != "" {
		return strings.TrimRight(ep, "/")
	}
	return fmt.Sprintf("https://%s.playfabapi.com", strings.ToLower(cfg.TitleID))
}

// Connect validates the config and pulls the segment once.
func (a *Adapter) Connect(ctx context.Context, cfg core.SourceConfig) error {
	if err := validate(cfg); err != nil {
		return err
	}

	a.cfg = cfg
	a.endpoint = baseURL(cfg) + "/Admin/GetPlayersInSegment"
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

// TestConnection pulls the segment header without touching cached state.
func (a *Adapter) TestConnection(ctx context.Context) bool {
	rctx, cancel := a.RequestContext(ctx)
	defer cancel()

	_, err := a.segment(rctx, 1)
	return err == nil
}

func (a *Adapter) FetchSchema(ctx context.Context) (*core.SchemaInfo, error) {
	return a.FreshSchema(ctx, a.fetch)
}

func (a *Adapter) FetchData(ctx context.Context, q *core.Query) (*core.NormalizedData, error) {
	return a.FetchClientSide(ctx, q, capabilities.MaxRowsPerQuery, a.fetch)
}

func (a *Adapter) headers() map[string]string {
	return map[string]string{
		"X-SecretKey":  a.cfg.SecretKey,
		"Content-Type": "application/json",
	}
}

// fetch pulls the full segment and flattens the profiles into rows.
func (a *Adapter) fetch(ctx context.Context) ([]core.Row, *core.SchemaInfo, error) {
	resp, err := a.segment(ctx, capabilities.MaxRowsPerQuery)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]core.Row, 0, len(resp.Data.PlayerProfiles))
	for _, profile := range resp.Data.PlayerProfiles {
		rows = append(rows, flattenProfile(profile))
	}
	return rows, infer.Schema(rows), nil
}

// segment posts one GetPlayersInSegment call.
func (a *Adapter) segment(ctx context.Context, batch int) (*segmentResponse, error) {
	var resp segmentResponse
	err := a.PostJSON(ctx, a.endpoint, a.headers(), segmentRequest{
		SegmentID:    a.cfg.SegmentID,
		MaxBatchSize: batch,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Code != 200 {
		return nil, &core.QueryError{
			Source:  a.Name(),
			Status:  resp.Code,
			Message: fmt.Sprintf("playfab: %s: %s", resp.Status, resp.ErrorMessage),
		}
	}
	return &resp, nil
}

// flattenProfile keeps the profile's scalar fields and promotes the fields
// of one-level nested objects using a dotted name. Deeper nesting and
// arrays are dropped; the query engine only compares scalars.
func flattenProfile(profile map[string]any) core.Row {
	row := make(core.Row, len(profile))
	for name, value := range profile {
		switch v := value.(type) {
		case map[string]any:
			for inner, innerValue := range v {
				if isScalar(innerValue) {
					row[name+"."+inner] = innerValue
				}
			}
		case []any:
			// dropped
		default:
			row[name] = v
		}
	}
	return row
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}

var _ adapter.Adapter = (*Adapter)(nil)
