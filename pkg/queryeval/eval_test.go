package queryeval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

func ageRows() []core.Row {
	return []core.Row{
		{"age": 17, "name": "ada"},
		{"age": 18, "name": "lin"},
		{"age": 30, "name": "kim"},
	}
}

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name     string
		filter   core.Filter
		wantRows int
		check    func(t *testing.T, rows []core.Row)
	}{
		{
			name:     "gte boundary is inclusive",
			filter:   core.Filter{Column: "age", Operator: core.OpGte, Value: 18},
			wantRows: 2,
			check: func(t *testing.T, rows []core.Row) {
				assert.Equal(t, 18, rows[0]["age"])
				assert.Equal(t, 30, rows[1]["age"])
			},
		},
		{
			name:     "eq coerces numeric types",
			filter:   core.Filter{Column: "age", Operator: core.OpEq, Value: float64(30)},
			wantRows: 1,
		},
		{
			name:     "neq",
			filter:   core.Filter{Column: "name", Operator: core.OpNeq, Value: "ada"},
			wantRows: 2,
		},
		{
			name:     "contains is case-insensitive",
			filter:   core.Filter{Column: "name", Operator: core.OpContains, Value: "AD"},
			wantRows: 1,
		},
		{
			name:     "in membership",
			filter:   core.Filter{Column: "name", Operator: core.OpIn, Value: []any{"ada", "kim"}},
			wantRows: 2,
		},
		{
			name:     "lt",
			filter:   core.Filter{Column: "age", Operator: core.OpLt, Value: 18},
			wantRows: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(ageRows(), &core.Query{Filters: []core.Filter{tt.filter}}, 0)
			require.NoError(t, err)
			require.Len(t, got, tt.wantRows)
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestApplyUnknownOperatorIsHardError(t *testing.T) {
	_, err := Apply(ageRows(), &core.Query{
		Filters: []core.Filter{{Column: "age", Operator: "between", Value: 1}},
	}, 0)
	require.Error(t, err)

	var opErr *core.UnsupportedOperationError
	assert.True(t, errors.As(err, &opErr))
}

func TestApplyInRequiresSlice(t *testing.T) {
	_, err := Apply(ageRows(), &core.Query{
		Filters: []core.Filter{{Column: "age", Operator: core.OpIn, Value: 18}},
	}, 0)
	require.Error(t, err)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	rows := ageRows()
	_, err := Apply(rows, &core.Query{
		Filters:    []core.Filter{{Column: "age", Operator: core.OpGte, Value: 18}},
		OrderBy:    "age",
		Descending: true,
		Limit:      1,
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, ageRows(), rows, "input row set must be left untouched")
}

func TestApplySort(t *testing.T) {
	rows := []core.Row{
		{"n": 3}, {"n": 1}, {"n": nil}, {"n": 2},
	}

	asc, err := Apply(rows, &core.Query{OrderBy: "n"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, 1, 2, 3}, pluck(asc, "n"))

	desc, err := Apply(rows, &core.Query{OrderBy: "n", Descending: true}, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{3, 2, 1, nil}, pluck(desc, "n"))
}

func TestApplySortDates(t *testing.T) {
	rows := []core.Row{
		{"day": "2024-03-01"}, {"day": "2024-01-15"}, {"day": "2024-02-01"},
	}
	got, err := Apply(rows, &core.Query{OrderBy: "day"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{"2024-01-15", "2024-02-01", "2024-03-01"}, pluck(got, "day"))
}

func TestApplyPagination(t *testing.T) {
	rows := make([]core.Row, 5)
	for i := range rows {
		rows[i] = core.Row{"i": i}
	}

	got, err := Apply(rows, &core.Query{Offset: 2, Limit: 2}, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{2, 3}, pluck(got, "i"))

	// Offset beyond the row set yields an empty, non-nil result.
	got, err = Apply(rows, &core.Query{Offset: 10}, 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestApplyMaxRowsCap(t *testing.T) {
	rows := make([]core.Row, 10)
	for i := range rows {
		rows[i] = core.Row{"i": i}
	}

	// No explicit limit still honors the adapter cap.
	got, err := Apply(rows, &core.Query{}, 4)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	// An oversized limit is clamped to the cap.
	got, err = Apply(rows, &core.Query{Limit: 100}, 4)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestApplyProjection(t *testing.T) {
	got, err := Apply(ageRows(), &core.Query{Columns: []string{"name", "missing"}}, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, core.Row{"name": "ada", "missing": nil}, got[0])
}

func TestApplyNilQuery(t *testing.T) {
	got, err := Apply(ageRows(), nil, 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func pluck(rows []core.Row, col string) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r[col]
	}
	return out
}
