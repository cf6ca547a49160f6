// Package proxy implements the SQL proxy the sqlproxy adapter talks to. It
// exposes one query endpoint that accepts a {connectionId, sql} envelope,
// enforces the read-only statement policy server-side, runs the statement
// against the registered database and replies with generic rows. Adapters
// never see database credentials; the proxy owns them.
package proxy

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gridlens-labs/gridlens/pkg/core"
	"github.com/gridlens-labs/gridlens/pkg/sqlgen"
)

// QueryPath is the fixed query endpoint.
const QueryPath = "/api/query"

// queryRequest is the envelope the adapter posts.
type queryRequest struct {
	ConnectionID string `json:"connectionId"`
	SQL          string `json:"sql"`
}

// queryResponse is the reply shape. Error is set iff Success is false.
type queryResponse struct {
	Success  bool       `json:"success"`
	Data     []core.Row `json:"data,omitempty"`
	Error    string     `json:"error,omitempty"`
	RowCount int        `json:"rowCount,omitempty"`
}

// Server holds the registered connections and serves the query endpoint.
type Server struct {
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]*sql.DB
}

// NewServer creates a server with no connections. If logger is nil, a
// discard logger is used.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		logger: logger,
		conns:  make(map[string]*sql.DB),
	}
}

// RegisterSQLite opens the SQLite database at path and registers it under
// the connection ID. Registering an ID twice closes the previous handle.
func (s *Server) RegisterSQLite(id, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.conns[id]; ok {
		_ = prev.Close()
	}
	s.conns[id] = db
	return nil
}

// Close closes every registered connection.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for id, db := range s.conns {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.conns, id)
	}
	return firstErr
}

// ConnectionIDs returns the registered connection IDs, sorted.
func (s *Server) ConnectionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Handler returns the HTTP handler for the proxy.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Get("/health", s.handleHealth)
	r.Post(QueryPath, s.handleQuery)
	return r
}

type requestIDKey struct{}

// requestID tags every request with a UUID for log correlation.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		ctx := contextWithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := s.logger.With(slog.String("request_id", requestIDFrom(r.Context())))

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, queryResponse{Success: false, Error: "invalid request body"})
		return
	}
	if req.ConnectionID == "" {
		writeJSON(w, http.StatusBadRequest, queryResponse{Success: false, Error: "connectionId is required"})
		return
	}

	// The adapter already rejected non-read-only statements, but the proxy
	// is the trust boundary and checks again.
	if err := sqlgen.EnsureReadOnly(req.SQL); err != nil {
		log.Warn("rejected statement",
			slog.String("connection", req.ConnectionID),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusForbidden, queryResponse{Success: false, Error: err.Error()})
		return
	}

	s.mu.RLock()
	db, ok := s.conns[req.ConnectionID]
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, queryResponse{
			Success: false,
			Error:   fmt.Sprintf("unknown connection %q", req.ConnectionID),
		})
		return
	}

	rows, err := queryRows(r.Context(), db, req.SQL)
	if err != nil {
		log.Warn("query failed",
			slog.String("connection", req.ConnectionID),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, queryResponse{Success: false, Error: err.Error()})
		return
	}

	log.Debug("query served",
		slog.String("connection", req.ConnectionID),
		slog.Int("rows", len(rows)),
		slog.Duration("elapsed", time.Since(start)))
	writeJSON(w, http.StatusOK, queryResponse{Success: true, Data: rows, RowCount: len(rows)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
