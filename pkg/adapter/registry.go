package adapter

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

// Factory constructs a fresh, disconnected adapter instance. If logger is
// nil the adapter uses a discard logger.
type Factory func(logger *slog.Logger) Adapter

// Registry maps source types to adapter factories. It is an explicit value
// created and owned by the caller — there is no process-wide registry and
// no init()-time self-registration. pkg/adapters.DefaultRegistry wires the
// built-in backends.
type Registry struct {
	mu        sync.RWMutex
	factories map[core.SourceType]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[core.SourceType]Factory)}
}

// Register adds or replaces the factory for a source type.
func (r *Registry) Register(t core.SourceType, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[t] = f
}

// IsRegistered checks whether a source type has a factory.
func (r *Registry) IsRegistered(t core.SourceType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[t]
	return ok
}

// Types returns all registered source types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}

// New constructs a fresh adapter for the config's declared source type.
// Every call returns a new instance: adapters are one per logical
// connection and never shared between configurations.
func (r *Registry) New(cfg core.SourceConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, &core.ConfigError{Field: "type", Reason: "is required"}
	}

	r.mu.RLock()
	factory, ok := r.factories[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, &core.UnknownSourceError{Type: cfg.Type, Available: r.Types()}
	}
	return factory(logger), nil
}
