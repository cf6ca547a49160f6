package restgen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

func TestParamsFull(t *testing.T) {
	params, err := Params(&core.Query{
		Columns: []string{"id", "status"},
		Filters: []core.Filter{
			{Column: "status", Operator: core.OpEq, Value: "shipped"},
			{Column: "total", Operator: core.OpGte, Value: 100},
		},
		OrderBy:    "total",
		Descending: true,
		Limit:      50,
		Offset:     10,
	}, 1000)
	require.NoError(t, err)

	assert.Equal(t, "id,status", params.Get("select"))
	assert.Equal(t, "eq.shipped", params.Get("status"))
	assert.Equal(t, "gte.100", params.Get("total"))
	assert.Equal(t, "total.desc", params.Get("order"))
	assert.Equal(t, "50", params.Get("limit"))
	assert.Equal(t, "10", params.Get("offset"))
}

func TestParamsOperators(t *testing.T) {
	tests := []struct {
		name   string
		filter core.Filter
		want   string
	}{
		{
			name:   "neq",
			filter: core.Filter{Column: "c", Operator: core.OpNeq, Value: "x"},
			want:   "neq.x",
		},
		{
			name:   "contains becomes ilike",
			filter: core.Filter{Column: "c", Operator: core.OpContains, Value: "brien"},
			want:   "ilike.*brien*",
		},
		{
			name:   "in list",
			filter: core.Filter{Column: "c", Operator: core.OpIn, Value: []any{"a", "b"}},
			want:   "in.(a,b)",
		},
		{
			name:   "reserved characters are quoted",
			filter: core.Filter{Column: "c", Operator: core.OpEq, Value: `o"brien, jr`},
			want:   `eq."o\"brien, jr"`,
		},
		{
			name:   "eq null",
			filter: core.Filter{Column: "c", Operator: core.OpEq, Value: nil},
			want:   "is.null",
		},
		{
			name:   "neq null",
			filter: core.Filter{Column: "c", Operator: core.OpNeq, Value: nil},
			want:   "not.is.null",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := Params(&core.Query{Filters: []core.Filter{tt.filter}}, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, params.Get("c"))
		})
	}
}

func TestParamsRejectsBadColumn(t *testing.T) {
	_, err := Params(&core.Query{
		Filters: []core.Filter{{Column: "a=evil", Operator: core.OpEq, Value: 1}},
	}, 0)
	require.Error(t, err)

	var idErr *core.InvalidIdentifierError
	assert.True(t, errors.As(err, &idErr))
}

func TestParamsUnknownOperator(t *testing.T) {
	_, err := Params(&core.Query{
		Filters: []core.Filter{{Column: "a", Operator: "regex", Value: ".*"}},
	}, 0)
	require.Error(t, err)

	var opErr *core.UnsupportedOperationError
	assert.True(t, errors.As(err, &opErr))
}

func TestParamsMaxRowsCap(t *testing.T) {
	params, err := Params(&core.Query{}, 500)
	require.NoError(t, err)
	assert.Equal(t, "500", params.Get("limit"))

	params, err = Params(&core.Query{Limit: 9000}, 500)
	require.NoError(t, err)
	assert.Equal(t, "500", params.Get("limit"))
}
