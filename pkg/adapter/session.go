package adapter

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

// Defaults applied when the source config leaves them zero.
const (
	// DefaultRefreshInterval is how long cached rows are served before a
	// read triggers a re-fetch.
	DefaultRefreshInterval = 5 * time.Minute

	// DefaultRequestTimeout bounds each network call. The original design
	// left requests unbounded and relied solely on user-triggered
	// disconnect; a default timeout closes that gap.
	DefaultRequestTimeout = 30 * time.Second
)

// FetchFunc performs one full backend fetch and returns the new row set and
// its freshly inferred schema.
type FetchFunc func(ctx context.Context) ([]core.Row, *core.SchemaInfo, error)

// Session holds the per-connection state shared by every adapter:
// connected flag, freshness-cached rows and schema, the cancellation root
// that Disconnect fires, and the HTTP client used for network calls.
// Embed it in concrete adapter implementations.
//
// The zero value is a disconnected session.
type Session struct {
	Logger *slog.Logger

	mu              sync.Mutex
	connected       bool
	name            string
	rows            []core.Row
	schema          *core.SchemaInfo
	lastFetch       time.Time
	refreshInterval time.Duration
	requestTimeout  time.Duration

	root   context.Context
	cancel context.CancelFunc
	client *http.Client

	// refresh collapses overlapping EnsureFresh calls into one backend
	// fetch. Unguarded concurrent refreshes could interleave reads of
	// half-updated state, so this is a hard invariant.
	refresh singleflight.Group

	// clock is swapped in freshness tests.
	clock func() time.Time
}

// Begin initializes the session for a new connection attempt: cancellation
// root, HTTP client and intervals. The session stays disconnected until
// Complete; a disconnect issued mid-connect still cancels the initial fetch.
func (s *Session) Begin(cfg core.SourceConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}
	if s.clock == nil {
		s.clock = time.Now
	}

	s.name = cfg.Name
	s.refreshInterval = cfg.RefreshInterval
	if s.refreshInterval <= 0 {
		s.refreshInterval = DefaultRefreshInterval
	}
	s.requestTimeout = cfg.RequestTimeout
	if s.requestTimeout <= 0 {
		s.requestTimeout = DefaultRequestTimeout
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.root, s.cancel = context.WithCancel(context.Background())
	s.client = &http.Client{Timeout: s.requestTimeout}
}

// Complete marks the connection established and seeds the freshness cache
// with the initial fetch result.
func (s *Session) Complete(rows []core.Row, schema *core.SchemaInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clock == nil {
		s.clock = time.Now
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}
	s.connected = true
	s.rows = rows
	s.schema = schema
	s.lastFetch = s.clock()

	s.Logger.Debug("source connected",
		slog.String("source", s.name),
		slog.Int("rows", len(rows)))
}

// Abort tears down a failed connection attempt so no adapter is left
// half-connected with stale schema.
func (s *Session) Abort() {
	s.Close()
}

// Close cancels any outstanding request and clears all cached state. It is
// idempotent: closing a session that was never opened is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.root = nil
	s.client = nil
	s.connected = false
	s.rows = nil
	s.schema = nil
	s.lastFetch = time.Time{}

	if s.Logger != nil {
		s.Logger.Debug("source disconnected", slog.String("source", s.name))
	}
}

// Connected reports whether Connect has completed successfully.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Name returns the configured source name.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Client returns the session's HTTP client (timeout already applied), or a
// default client when the session has not begun.
func (s *Session) Client() *http.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client
	}
	return &http.Client{Timeout: DefaultRequestTimeout}
}

// RequestContext derives a context for one backend call that is canceled
// when the caller's ctx is canceled, when Disconnect fires the session
// root, or when the request timeout elapses. Cancellation after the
// response has been received is a no-op.
func (s *Session) RequestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	s.mu.Lock()
	root := s.root
	timeout := s.requestTimeout
	s.mu.Unlock()

	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	if root == nil {
		return ctx, cancel
	}
	stop := context.AfterFunc(root, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// stale reports whether a read must trigger a refresh. The boundary is
// strict: a read exactly at the interval is still fresh.
func (s *Session) stale() bool {
	if s.lastFetch.IsZero() {
		return true
	}
	return s.clock().Sub(s.lastFetch) > s.refreshInterval
}

// EnsureFresh returns the cached rows and schema, refreshing via fetch
// first when the cache is stale. Overlapping calls share a single refresh;
// a refresh error surfaces to every caller whose read triggered it.
// The returned slice is a copy — the cache is never handed out for
// mutation.
func (s *Session) EnsureFresh(ctx context.Context, op string, fetch FetchFunc) ([]core.Row, *core.SchemaInfo, error) {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil, nil, &core.NotConnectedError{Op: op}
	}
	needsRefresh := s.stale()
	s.mu.Unlock()

	if needsRefresh {
		_, err, _ := s.refresh.Do("refresh", func() (any, error) {
			// Re-check under the flight: a refresh that completed while we
			// queued makes this one redundant.
			s.mu.Lock()
			if s.connected && !s.stale() {
				s.mu.Unlock()
				return nil, nil
			}
			s.mu.Unlock()

			rctx, cancel := s.RequestContext(ctx)
			defer cancel()

			s.Logger.Debug("refreshing source", slog.String("source", s.name))
			rows, schema, err := fetch(rctx)
			if err != nil {
				return nil, err
			}

			s.mu.Lock()
			s.rows = rows
			s.schema = schema
			s.lastFetch = s.clock()
			s.mu.Unlock()
			return nil, nil
		})
		if err != nil {
			return nil, nil, err
		}
	}

	return s.snapshot(op)
}

// snapshot copies out the cached rows and schema.
func (s *Session) snapshot(op string) ([]core.Row, *core.SchemaInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, nil, &core.NotConnectedError{Op: op}
	}
	rows := make([]core.Row, len(s.rows))
	copy(rows, s.rows)
	return rows, s.schema, nil
}
