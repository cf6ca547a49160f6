package gameanalytics

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

func newGame(t *testing.T) (*httptest.Server, *http.Request) {
	t.Helper()
	var last http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = *r
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"metric": "dau", "date": "2024-03-01", "value": 1200},
				{"metric": "dau", "date": "2024-03-02", "value": 1350},
				{"metric": "revenue", "date": "2024-03-01", "value": 89.5},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func validConfig(endpoint string) core.SourceConfig {
	return core.SourceConfig{
		Name:    "metrics",
		GameID:  "12345",
		APIKey:  "ga-key",
		Options: map[string]string{"endpoint": endpoint},
	}
}

func TestConnectValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.SourceConfig)
		field  string
	}{
		{name: "missing game id", mutate: func(c *core.SourceConfig) { c.GameID = "" }, field: "gameId"},
		{name: "game id with path metacharacters", mutate: func(c *core.SourceConfig) { c.GameID = "1/../admin" }, field: "gameId"},
		{name: "missing api key", mutate: func(c *core.SourceConfig) { c.APIKey = "" }, field: "apiKey"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig("http://localhost:1")
			tt.mutate(&cfg)

			a := New(nil)
			err := a.Connect(context.Background(), cfg)
			require.Error(t, err)

			var cfgErr *core.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConnectSendsAuth(t *testing.T) {
	srv, last := newGame(t)

	a := New(nil)
	require.NoError(t, a.Connect(context.Background(), validConfig(srv.URL)))
	t.Cleanup(func() { _ = a.Disconnect() })

	assert.Equal(t, "/v2/games/12345/metrics", last.URL.Path)
	assert.Equal(t, "ga-key", last.Header.Get("Authorization"))
}

func TestFetchDataFiltersMetrics(t *testing.T) {
	srv, _ := newGame(t)

	a := New(nil)
	require.NoError(t, a.Connect(context.Background(), validConfig(srv.URL)))
	t.Cleanup(func() { _ = a.Disconnect() })

	data, err := a.FetchData(context.Background(), &core.Query{
		Filters: []core.Filter{{Column: "metric", Operator: core.OpEq, Value: "dau"}},
		OrderBy: "date",
	})
	require.NoError(t, err)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "2024-03-01", data.Rows[0]["date"])
}

func TestAPIErrorsSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []string{"unknown game"},
		})
	}))
	t.Cleanup(srv.Close)

	a := New(nil)
	err := a.Connect(context.Background(), validConfig(srv.URL))
	require.Error(t, err)
	assert.False(t, a.Connected())
	assert.Contains(t, err.Error(), "unknown game")
}

func TestFetchDataBeforeConnect(t *testing.T) {
	a := New(nil)
	_, err := a.FetchData(context.Background(), &core.Query{Limit: 1})

	var ncErr *core.NotConnectedError
	require.True(t, errors.As(err, &ncErr))
}
