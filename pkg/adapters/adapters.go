// Package adapters wires the built-in source adapters into a registry.
// Registration is explicit: nothing in this module self-registers from
// init, so callers that only want a subset build their own registry and
// register exactly what they need.
package adapters

import (
	"log/slog"

	"github.com/gridlens-labs/gridlens/pkg/adapter"
	"github.com/gridlens-labs/gridlens/pkg/adapters/csvfile"
	"github.com/gridlens-labs/gridlens/pkg/adapters/gameanalytics"
	"github.com/gridlens-labs/gridlens/pkg/adapters/playfab"
	"github.com/gridlens-labs/gridlens/pkg/adapters/postgres"
	"github.com/gridlens-labs/gridlens/pkg/adapters/postgrest"
	"github.com/gridlens-labs/gridlens/pkg/adapters/redis"
	"github.com/gridlens-labs/gridlens/pkg/adapters/restapi"
	"github.com/gridlens-labs/gridlens/pkg/adapters/sqlproxy"
	"github.com/gridlens-labs/gridlens/pkg/core"
)

// DefaultRegistry returns a registry with every built-in adapter
// registered.
func DefaultRegistry() *adapter.Registry {
	r := adapter.NewRegistry()
	r.Register(core.SourceCSVFile, func(l *slog.Logger) adapter.Adapter { return csvfile.New(l) })
	r.Register(core.SourceRESTAPI, func(l *slog.Logger) adapter.Adapter { return restapi.New(l) })
	r.Register(core.SourcePostgREST, func(l *slog.Logger) adapter.Adapter { return postgrest.New(l) })
	r.Register(core.SourceSQLProxy, func(l *slog.Logger) adapter.Adapter { return sqlproxy.New(l) })
	r.Register(core.SourcePostgres, func(l *slog.Logger) adapter.Adapter { return postgres.New(l) })
	r.Register(core.SourcePlayFab, func(l *slog.Logger) adapter.Adapter { return playfab.New(l) })
	r.Register(core.SourceGameAnalytics, func(l *slog.Logger) adapter.Adapter { return gameanalytics.New(l) })
	r.Register(core.SourceRedis, func(l *slog.Logger) adapter.Adapter { return redis.New(l) })
	return r
}
