// Package adapter defines the uniform lifecycle and query contract every
// GridLens data source implements, plus the shared session machinery
// (connection state, freshness cache, cancellation) concrete adapters embed.
//
// Concrete adapter implementations live in pkg/adapters/ subdirectories.
package adapter

import (
	"context"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

// Adapter is the contract implemented by every backend family. An Adapter
// instance represents one logical connection: it is created disconnected,
// single-owner, and never shared across configurations.
//
// Callers must not invoke FetchData concurrently on one instance; many
// independent instances may run concurrently.
type Adapter interface {
	// Connect validates cfg, performs the initial fetch and populates the
	// internal schema and row cache. Missing or malformed required fields
	// fail with *core.ConfigError before any network call; a failed
	// handshake or initial fetch fails with *core.ConnectionError and
	// leaves the adapter disconnected.
	Connect(ctx context.Context, cfg core.SourceConfig) error

	// Disconnect cancels any in-flight request, clears all cached state and
	// returns the adapter to a state indistinguishable from freshly
	// constructed. It is idempotent and never fails; teardown errors are
	// deliberately discarded because the connection is being thrown away.
	Disconnect() error

	// TestConnection probes the backend. It reports reachability only and
	// does not change adapter state.
	TestConnection(ctx context.Context) bool

	// FetchSchema returns the schema inferred from the freshest cached
	// rows, refreshing first if the cache is stale. Fails with
	// *core.NotConnectedError before a successful Connect.
	FetchSchema(ctx context.Context) (*core.SchemaInfo, error)

	// FetchData refreshes if stale, then applies q to a copy of the cached
	// rows (or pushes q down to the backend when the source supports it).
	// A nil query means no constraints. Fails with *core.NotConnectedError
	// before a successful Connect.
	FetchData(ctx context.Context, q *core.Query) (*core.NormalizedData, error)

	// Capabilities returns the static capability declaration for this
	// backend family.
	Capabilities() core.Capabilities

	// Type identifies the backend family.
	Type() core.SourceType
}
