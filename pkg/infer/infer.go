// Package infer derives column schemas from sampled row data. Sources in
// GridLens carry no authoritative schema, so column types and nullability
// are voted from a small sample of values.
//
// This is deliberately a sampling heuristic: it inspects at most SampleSize
// values per column and takes the majority type among the non-null ones.
// A column whose first ten values are integers and whose eleventh is free
// text will still be reported as a number column. That imprecision is
// acceptable for dashboard rendering and is documented here so nobody
// mistakes the output for a contract.
package infer

import (
	"sort"
	"strings"
	"time"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

// SampleSize is how many values per column participate in the vote. More
// samples improve accuracy negligibly for this use case.
const SampleSize = 10

// dateLayouts are tried in order when classifying string values.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Value infers the semantic type of a single non-nil value.
func Value(v any) core.ColumnType {
	switch x := v.(type) {
	case bool:
		return core.TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return core.TypeNumber
	case time.Time:
		return core.TypeDate
	case string:
		if isDateString(x) {
			return core.TypeDate
		}
		return core.TypeString
	default:
		return core.TypeUnknown
	}
}

// isDateString reports whether s parses as a date. The literal must contain
// a '-' separator so that ambiguous numeric strings ("20240101") stay
// strings.
func isDateString(s string) bool {
	if len(s) < 8 || !strings.Contains(s, "-") {
		return false
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// Infer votes a column type and nullability from sampled values. Nil values
// are dropped from the vote but set Nullable; if nothing remains the type
// is unknown.
func Infer(values []any) (core.ColumnType, bool) {
	if len(values) > SampleSize {
		values = values[:SampleSize]
	}

	nullable := false
	counts := make(map[core.ColumnType]int)
	for _, v := range values {
		if v == nil {
			nullable = true
			continue
		}
		counts[Value(v)]++
	}

	if len(counts) == 0 {
		return core.TypeUnknown, nullable
	}

	best := core.TypeUnknown
	bestCount := 0
	for _, candidate := range []core.ColumnType{core.TypeNumber, core.TypeBoolean, core.TypeDate, core.TypeString, core.TypeUnknown} {
		if c := counts[candidate]; c > bestCount {
			best, bestCount = candidate, c
		}
	}
	return best, nullable
}

// Columns builds ColumnInfo for every column present in the sampled rows.
// Column order follows first appearance across the sample so CSV-shaped
// sources keep their header order.
func Columns(rows []core.Row) []core.ColumnInfo {
	sample := rows
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}

	var order []string
	seen := make(map[string]bool)
	values := make(map[string][]any)

	for _, row := range sample {
		for _, name := range rowKeys(row) {
			if !seen[name] {
				seen[name] = true
				order = append(order, name)
			}
		}
	}

	// A column absent from a row counts as a null observation.
	for _, row := range sample {
		for _, name := range order {
			v, ok := row[name]
			if !ok {
				v = nil
			}
			values[name] = append(values[name], v)
		}
	}

	columns := make([]core.ColumnInfo, 0, len(order))
	for _, name := range order {
		typ, nullable := Infer(values[name])
		columns = append(columns, core.ColumnInfo{
			Name:         name,
			Type:         typ,
			Nullable:     nullable,
			SampleValues: nonNil(values[name]),
		})
	}
	return columns
}

// Schema assembles a full SchemaInfo for a row set.
func Schema(rows []core.Row) *core.SchemaInfo {
	sample := rows
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	return &core.SchemaInfo{
		Columns:    Columns(rows),
		RowCount:   len(rows),
		SampleData: sample,
	}
}

// rowKeys returns the row's keys sorted lexicographically. Map iteration is
// random, and schema output must be stable across refreshes.
func rowKeys(row core.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonNil(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}
