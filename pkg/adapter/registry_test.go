package adapter

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

// stubAdapter is a minimal Adapter for registry tests.
type stubAdapter struct {
	Session
}

func (a *stubAdapter) Connect(context.Context, core.SourceConfig) error { return nil }
func (a *stubAdapter) Disconnect() error                               { return nil }
func (a *stubAdapter) TestConnection(context.Context) bool             { return true }
func (a *stubAdapter) FetchSchema(context.Context) (*core.SchemaInfo, error) {
	return nil, nil
}
func (a *stubAdapter) FetchData(context.Context, *core.Query) (*core.NormalizedData, error) {
	return nil, nil
}
func (a *stubAdapter) Capabilities() core.Capabilities { return core.Capabilities{} }
func (a *stubAdapter) Type() core.SourceType           { return "stub" }

var _ Adapter = (*stubAdapter)(nil)

func TestRegistryNew(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", func(*slog.Logger) Adapter { return &stubAdapter{} })

	a, err := r.New(core.SourceConfig{Type: "stub"}, nil)
	require.NoError(t, err)
	assert.Equal(t, core.SourceType("stub"), a.Type())

	// Every call constructs a fresh instance.
	b, err := r.New(core.SourceConfig{Type: "stub"}, nil)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestRegistryUnknownType(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", func(*slog.Logger) Adapter { return &stubAdapter{} })

	_, err := r.New(core.SourceConfig{Type: "mystery"}, nil)
	require.Error(t, err)

	var unknownErr *core.UnknownSourceError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, core.SourceType("mystery"), unknownErr.Type)
	assert.Equal(t, []string{"stub"}, unknownErr.Available)
}

func TestRegistryMissingType(t *testing.T) {
	r := NewRegistry()
	_, err := r.New(core.SourceConfig{}, nil)

	var cfgErr *core.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "type", cfgErr.Field)
}

func TestRegistryTypesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("zeta", func(*slog.Logger) Adapter { return &stubAdapter{} })
	r.Register("alpha", func(*slog.Logger) Adapter { return &stubAdapter{} })

	assert.Equal(t, []string{"alpha", "zeta"}, r.Types())
	assert.True(t, r.IsRegistered("alpha"))
	assert.False(t, r.IsRegistered("omega"))
}
