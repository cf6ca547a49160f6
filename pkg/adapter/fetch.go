package adapter

import (
	"context"
	"time"

	"github.com/gridlens-labs/gridlens/pkg/core"
	"github.com/gridlens-labs/gridlens/pkg/queryeval"
)

// FetchClientSide implements FetchData for sources that cannot push
// predicates to their backend: refresh if stale, then filter, sort and
// paginate a copy of the cached rows in memory.
func (s *Session) FetchClientSide(ctx context.Context, q *core.Query, maxRows int, fetch FetchFunc) (*core.NormalizedData, error) {
	rows, schema, err := s.EnsureFresh(ctx, "fetchData", fetch)
	if err != nil {
		return nil, err
	}

	filtered, err := queryeval.Apply(rows, q, maxRows)
	if err != nil {
		return nil, err
	}
	return NewResult(s.Name(), resultColumns(q, schema), filtered), nil
}

// FreshSchema implements FetchSchema on top of the freshness cache.
func (s *Session) FreshSchema(ctx context.Context, fetch FetchFunc) (*core.SchemaInfo, error) {
	_, schema, err := s.EnsureFresh(ctx, "fetchSchema", fetch)
	if err != nil {
		return nil, err
	}
	return schema, nil
}

// NewResult assembles the uniform output shape.
func NewResult(source string, columns []string, rows []core.Row) *core.NormalizedData {
	return &core.NormalizedData{
		Columns: columns,
		Rows:    rows,
		Metadata: core.Metadata{
			Source:    source,
			FetchedAt: time.Now(),
			RowCount:  len(rows),
		},
	}
}

// resultColumns picks the output column list: the query's projection when
// present, the inferred schema order otherwise.
func resultColumns(q *core.Query, schema *core.SchemaInfo) []string {
	if q != nil && len(q.Columns) > 0 {
		return q.Columns
	}
	if schema == nil {
		return nil
	}
	columns := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		columns[i] = c.Name
	}
	return columns
}
