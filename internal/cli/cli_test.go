package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected core.Filter
		wantErr  bool
	}{
		{
			name:     "string equality",
			input:    "status:eq:shipped",
			expected: core.Filter{Column: "status", Operator: core.OpEq, Value: "shipped"},
		},
		{
			name:     "numeric comparison",
			input:    "total:gt:100",
			expected: core.Filter{Column: "total", Operator: core.OpGt, Value: 100},
		},
		{
			name:     "float value",
			input:    "score:lte:4.5",
			expected: core.Filter{Column: "score", Operator: core.OpLte, Value: 4.5},
		},
		{
			name:     "bool value",
			input:    "active:eq:true",
			expected: core.Filter{Column: "active", Operator: core.OpEq, Value: true},
		},
		{
			name:     "null value",
			input:    "deleted_at:eq:null",
			expected: core.Filter{Column: "deleted_at", Operator: core.OpEq, Value: nil},
		},
		{
			name:     "in list",
			input:    "event:in:login,logout",
			expected: core.Filter{Column: "event", Operator: core.OpIn, Value: []any{"login", "logout"}},
		},
		{
			name:     "value keeps extra colons",
			input:    "ts:gte:2024-03-01T00:00:00Z",
			expected: core.Filter{Column: "ts", Operator: core.OpGte, Value: "2024-03-01T00:00:00Z"},
		},
		{name: "missing value", input: "status:eq", wantErr: true},
		{name: "unknown operator", input: "status:like:x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFilter(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f)
		})
	}
}

// newEventsServer fakes a REST source for end-to-end command runs.
func newEventsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"event": "login", "count": 10},
			{"event": "purchase", "count": 3},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeTestConfig(t *testing.T, url string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gridlens.yaml")
	content := "sources:\n  events:\n    type: rest\n    url: " + url + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSourcesCommand(t *testing.T) {
	cfg := writeTestConfig(t, "https://api.example.com/events")

	out, err := runCommand(t, "--config", cfg, "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "events")
	assert.Contains(t, out, "rest")
}

func TestFetchCommandJSON(t *testing.T) {
	srv := newEventsServer(t)
	cfg := writeTestConfig(t, srv.URL)

	out, err := runCommand(t, "--config", cfg, "fetch", "events",
		"--filter", "count:gt:5", "-o", "json")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "login", rows[0]["event"])
}

func TestFetchCommandUnknownSource(t *testing.T) {
	cfg := writeTestConfig(t, "https://api.example.com/events")

	_, err := runCommand(t, "--config", cfg, "fetch", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestTestCommand(t *testing.T) {
	srv := newEventsServer(t)
	cfg := writeTestConfig(t, srv.URL)

	out, err := runCommand(t, "--config", cfg, "test")
	require.NoError(t, err)
	assert.Contains(t, out, "events")
	assert.Contains(t, out, "ok")
}

func TestSchemaCommand(t *testing.T) {
	srv := newEventsServer(t)
	cfg := writeTestConfig(t, srv.URL)

	out, err := runCommand(t, "--config", cfg, "schema", "events")
	require.NoError(t, err)
	assert.Contains(t, out, "count")
	assert.Contains(t, out, "number")
	assert.Contains(t, out, "string")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gridlens")
}
