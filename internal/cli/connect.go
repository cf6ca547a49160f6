package cli

import (
	"context"
	"fmt"

	"github.com/gridlens-labs/gridlens/pkg/adapter"
	"github.com/gridlens-labs/gridlens/pkg/core"
)

// connectSource builds and connects the adapter for a configured source.
// The caller owns the returned adapter and must Disconnect it.
func (a *App) connectSource(ctx context.Context, name string) (adapter.Adapter, core.SourceConfig, error) {
	cfg, ok := a.Config.Source(name)
	if !ok {
		return nil, core.SourceConfig{}, fmt.Errorf("source %q is not configured (known sources: %v)", name, a.Config.SourceNames())
	}

	adp, err := a.Registry.New(cfg, a.Logger)
	if err != nil {
		return nil, core.SourceConfig{}, err
	}
	if err := adp.Connect(ctx, cfg); err != nil {
		return nil, core.SourceConfig{}, fmt.Errorf("failed to connect to %s: %w", name, err)
	}
	return adp, cfg, nil
}
