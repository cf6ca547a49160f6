package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{
		"csvfile", "gameanalytics", "playfab", "postgres",
		"postgrest", "redis", "rest", "sqlproxy",
	}, r.Types())

	for _, typ := range []core.SourceType{
		core.SourceCSVFile, core.SourceRESTAPI, core.SourcePostgREST,
		core.SourceSQLProxy, core.SourcePostgres, core.SourcePlayFab,
		core.SourceGameAnalytics, core.SourceRedis,
	} {
		a, err := r.New(core.SourceConfig{Name: "s", Type: typ}, nil)
		require.NoError(t, err, typ)
		assert.Equal(t, typ, a.Type())
	}
}
