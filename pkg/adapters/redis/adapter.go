// Package redis provides a data source adapter for Redis key spaces that
// hold JSON documents. Keys matching the configured pattern are scanned and
// their values decoded into rows; queries evaluate client-side.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

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

// scanBatch is the COUNT hint passed to SCAN and the MGET chunk size.
const scanBatch = 500

// keyColumn carries the Redis key into each row. A document field of the
// same name wins; the key is supplementary, not authoritative.
const keyColumn = "_key"

// Adapter implements adapter.Adapter for Redis key spaces.
type Adapter struct {
	adapter.Session
	cfg     core.SourceConfig
	pattern string
	client  *redis.Client
}

// New creates a disconnected Redis adapter. If logger is nil, a discard
// logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{Session: adapter.Session{Logger: logger}}
}

func (a *Adapter) Type() core.SourceType           { return core.SourceRedis }
func (a *Adapter) Capabilities() core.Capabilities { return capabilities }

func validate(cfg core.SourceConfig) error {
	if cfg.Addr == "" {
		return &core.ConfigError{Field: "addr", Reason: "is required for redis sources"}
	}
	if !strings.Contains(cfg.Addr, ":") {
		return &core.ConfigError{Field: "addr", Reason: "must be host:port"}
	}
	if cfg.DB < 0 || cfg.DB > 15 {
		return &core.ConfigError{Field: "db", Reason: "must be between 0 and 15"}
	}
	return nil
}

// Connect opens the client, pings the server and scans the key space once.
func (a *Adapter) Connect(ctx context.Context, cfg core.SourceConfig) error {
	if err := validate(cfg); err != nil {
		return err
	}

	a.cfg = cfg
	a.pattern = cfg.KeyPattern
	if a.pattern == "" {
		a.pattern = "*"
	}
	a.client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	a.Session.Begin(cfg)

	rctx, cancel := a.RequestContext(ctx)
	defer cancel()

	if err := a.client.Ping(rctx).Err(); err != nil {
		a.teardown()
		return &core.ConnectionError{Source: cfg.Name, Err: fmt.Errorf("failed to ping redis: %w", err)}
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
	if a.client != nil {
		_ = a.client.Close()
		a.client = nil
	}
}

func (a *Adapter) Disconnect() error {
	a.Session.Close()
	if a.client != nil {
		err := a.client.Close()
		a.client = nil
		return err
	}
	return nil
}

// TestConnection pings the server.
func (a *Adapter) TestConnection(ctx context.Context) bool {
	if a.client == nil {
		return false
	}
	rctx, cancel := a.RequestContext(ctx)
	defer cancel()
	return a.client.Ping(rctx).Err() == nil
}

func (a *Adapter) FetchSchema(ctx context.Context) (*core.SchemaInfo, error) {
	return a.FreshSchema(ctx, a.fetch)
}

func (a *Adapter) FetchData(ctx context.Context, q *core.Query) (*core.NormalizedData, error) {
	return a.FetchClientSide(ctx, q, capabilities.MaxRowsPerQuery, a.fetch)
}

// fetch scans matching keys and decodes their values into rows.
func (a *Adapter) fetch(ctx context.Context) ([]core.Row, *core.SchemaInfo, error) {
	keys, err := a.scanKeys(ctx)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]core.Row, 0, len(keys))
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		chunk := keys[start:end]

		values, err := a.client.MGet(ctx, chunk...).Result()
		if err != nil {
			return nil, nil, &core.QueryError{Source: a.Name(), Message: err.Error()}
		}
		for i, value := range values {
			if value == nil {
				// Key expired between SCAN and MGET.
				continue
			}
			rows = append(rows, rowFromValue(chunk[i], value))
		}
	}
	return rows, infer.Schema(rows), nil
}

// scanKeys collects keys matching the pattern, capped at the row limit.
func (a *Adapter) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := a.client.Scan(ctx, 0, a.pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= capabilities.MaxRowsPerQuery {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, &core.QueryError{Source: a.Name(), Message: err.Error()}
	}
	return keys, nil
}

// rowFromValue decodes one value. JSON objects become rows with the key
// attached; anything else becomes a two-column key/value row.
func rowFromValue(key string, value any) core.Row {
	s, ok := value.(string)
	if ok {
		var doc map[string]any
		if err := json.Unmarshal([]byte(s), &doc); err == nil {
			row := core.Row(doc)
			if _, taken := row[keyColumn]; !taken {
				row[keyColumn] = key
			}
			return row
		}
	}
	return core.Row{keyColumn: key, "value": value}
}

var _ adapter.Adapter = (*Adapter)(nil)
