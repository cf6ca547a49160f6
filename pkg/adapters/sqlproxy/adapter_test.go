package sqlproxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

// newProxy fakes the query endpoint, recording every statement it receives.
func newProxy(t *testing.T, statements *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, QueryPath, r.URL.Path)

		var env envelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		require.Equal(t, "conn-42", env.ConnectionID)
		if statements != nil {
			*statements = append(*statements, env.SQL)
		}

		_ = json.NewEncoder(w).Encode(response{
			Success: true,
			Data: []core.Row{
				{"id": float64(1), "region": "eu"},
				{"id": float64(2), "region": "us"},
			},
			RowCount: 2,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func validConfig(url string) core.SourceConfig {
	return core.SourceConfig{
		Name:         "warehouse",
		ProxyURL:     url,
		ConnectionID: "conn-42",
		Table:        "sales",
	}
}

func TestConnectValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.SourceConfig)
		field  string
	}{
		{name: "missing proxy url", mutate: func(c *core.SourceConfig) { c.ProxyURL = "" }, field: "proxyUrl"},
		{name: "malformed proxy url", mutate: func(c *core.SourceConfig) { c.ProxyURL = "not a url" }, field: "proxyUrl"},
		{name: "missing connection id", mutate: func(c *core.SourceConfig) { c.ConnectionID = "" }, field: "connectionId"},
		{name: "injection in connection id", mutate: func(c *core.SourceConfig) { c.ConnectionID = "id'; --" }, field: "connectionId"},
		{name: "missing table", mutate: func(c *core.SourceConfig) { c.Table = "" }, field: "table"},
		{name: "injection in table", mutate: func(c *core.SourceConfig) { c.Table = "sales; DROP TABLE x" }, field: "table"},
		{name: "bad schema", mutate: func(c *core.SourceConfig) { c.Schema = "pub lic" }, field: "schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig("http://localhost:8099")
			tt.mutate(&cfg)

			a := New(nil)
			err := a.Connect(context.Background(), cfg)
			require.Error(t, err)

			var cfgErr *core.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.False(t, a.Connected())
		})
	}
}

func TestConnectSeedsCache(t *testing.T) {
	var statements []string
	srv := newProxy(t, &statements)

	a := New(nil)
	require.NoError(t, a.Connect(context.Background(), validConfig(srv.URL)))
	t.Cleanup(func() { _ = a.Disconnect() })

	require.Len(t, statements, 1)
	assert.Equal(t, "SELECT * FROM sales LIMIT 10000", statements[0])

	schema, err := a.FetchSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, schema.RowCount)
	assert.Len(t, statements, 1, "schema inside the freshness window must not requery")
}

func TestFetchDataPushesSQLDown(t *testing.T) {
	var statements []string
	srv := newProxy(t, &statements)

	a := New(nil)
	require.NoError(t, a.Connect(context.Background(), validConfig(srv.URL)))
	t.Cleanup(func() { _ = a.Disconnect() })

	data, err := a.FetchData(context.Background(), &core.Query{
		Columns: []string{"id", "region"},
		Filters: []core.Filter{{Column: "region", Operator: core.OpEq, Value: "eu"}},
		OrderBy: "id",
		Limit:   5,
	})
	require.NoError(t, err)

	require.Len(t, statements, 2)
	assert.Equal(t,
		"SELECT id, region FROM sales WHERE region = 'eu' ORDER BY id ASC LIMIT 5",
		statements[1])
	assert.Equal(t, []string{"id", "region"}, data.Columns)
	assert.Len(t, data.Rows, 2)
}

func TestFetchDataUnconstrainedServedFromCache(t *testing.T) {
	var statements []string
	srv := newProxy(t, &statements)

	a := New(nil)
	require.NoError(t, a.Connect(context.Background(), validConfig(srv.URL)))
	t.Cleanup(func() { _ = a.Disconnect() })

	_, err := a.FetchData(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, statements, 1, "unconstrained reads inside the window come from cache")
}

func TestQueryRaw(t *testing.T) {
	var statements []string
	srv := newProxy(t, &statements)

	a := New(nil)
	require.NoError(t, a.Connect(context.Background(), validConfig(srv.URL)))
	t.Cleanup(func() { _ = a.Disconnect() })

	data, err := a.QueryRaw(context.Background(), "SELECT region, count(*) FROM sales GROUP BY region")
	require.NoError(t, err)
	assert.Len(t, data.Rows, 2)
	assert.Equal(t, "SELECT region, count(*) FROM sales GROUP BY region", statements[1])
}

func TestQueryRawRejectsWrites(t *testing.T) {
	srv := newProxy(t, nil)

	a := New(nil)
	require.NoError(t, a.Connect(context.Background(), validConfig(srv.URL)))
	t.Cleanup(func() { _ = a.Disconnect() })

	for _, sql := range []string{
		"DELETE FROM sales",
		"UPDATE sales SET x = 1",
		"SELECT 1; DROP TABLE sales",
	} {
		_, err := a.QueryRaw(context.Background(), sql)
		require.Error(t, err, sql)

		var opErr *core.UnsupportedOperationError
		assert.True(t, errors.As(err, &opErr), sql)
	}
}

func TestProxyFailureSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(response{Success: false, Error: "relation does not exist"})
	}))
	t.Cleanup(srv.Close)

	a := New(nil)
	err := a.Connect(context.Background(), validConfig(srv.URL))
	require.Error(t, err)
	assert.False(t, a.Connected())

	var connErr *core.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Contains(t, err.Error(), "relation does not exist")
}

func TestFetchDataBeforeConnect(t *testing.T) {
	a := New(nil)
	_, err := a.FetchData(context.Background(), &core.Query{Limit: 1})

	var ncErr *core.NotConnectedError
	require.True(t, errors.As(err, &ncErr))
}
