// Package queryeval evaluates abstract queries against in-memory row sets.
// Sources that cannot push predicates to their backend (flat files, generic
// REST payloads, caches) filter, sort and paginate here instead.
package queryeval

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

// Apply filters, sorts, projects and paginates rows according to q. The
// input slice is never mutated; the result is always a fresh slice.
// maxRows caps the effective limit (<= 0 means uncapped).
//
// An operator the engine does not recognize is a hard error, not a
// match-all: silently widening a filtered result is worse than failing.
func Apply(rows []core.Row, q *core.Query, maxRows int) ([]core.Row, error) {
	out := make([]core.Row, len(rows))
	copy(out, rows)

	if q == nil {
		q = &core.Query{}
	}

	for _, f := range q.Filters {
		filtered := out[:0:0]
		for _, row := range out {
			ok, err := Match(row, f)
			if err != nil {
				return nil, err
			}
			if ok {
				filtered = append(filtered, row)
			}
		}
		out = filtered
	}

	if q.OrderBy != "" {
		sortRows(out, q.OrderBy, q.Descending)
	}

	out = paginate(out, q.Offset, q.Limit, maxRows)

	if len(q.Columns) > 0 {
		out = project(out, q.Columns)
	}

	return out, nil
}

// Match evaluates a single filter against a row.
func Match(row core.Row, f core.Filter) (bool, error) {
	value, present := row[f.Column]

	switch f.Operator {
	case core.OpEq:
		return present && looseEqual(value, f.Value), nil
	case core.OpNeq:
		return !present || !looseEqual(value, f.Value), nil
	case core.OpGt, core.OpLt, core.OpGte, core.OpLte:
		if !present || value == nil {
			return false, nil
		}
		cmp, ok := compareValues(value, f.Value)
		if !ok {
			return false, nil
		}
		switch f.Operator {
		case core.OpGt:
			return cmp > 0, nil
		case core.OpLt:
			return cmp < 0, nil
		case core.OpGte:
			return cmp >= 0, nil
		default:
			return cmp <= 0, nil
		}
	case core.OpContains:
		if !present || value == nil {
			return false, nil
		}
		haystack := strings.ToLower(stringify(value))
		needle := strings.ToLower(stringify(f.Value))
		return strings.Contains(haystack, needle), nil
	case core.OpIn:
		if !present {
			return false, nil
		}
		return matchIn(value, f.Value)
	default:
		return false, &core.UnsupportedOperationError{
			Operation: "filter",
			Reason:    fmt.Sprintf("unknown operator %q", f.Operator),
		}
	}
}

// matchIn tests membership of value in the filter's slice operand.
func matchIn(value, operand any) (bool, error) {
	rv := reflect.ValueOf(operand)
	if operand == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return false, &core.UnsupportedOperationError{
			Operation: "filter",
			Reason:    fmt.Sprintf("operator %q requires a slice value, got %T", core.OpIn, operand),
		}
	}
	for i := 0; i < rv.Len(); i++ {
		if looseEqual(value, rv.Index(i).Interface()) {
			return true, nil
		}
	}
	return false, nil
}

// looseEqual compares across the type drift JSON decoding introduces:
// int vs float64, values vs their string renderings.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	return stringify(a) == stringify(b)
}

// compareValues orders two values when they share a comparable domain:
// numbers numerically, times chronologically, strings by locale-aware
// collation. The bool result is false when no shared domain exists.
func compareValues(a, b any) (int, bool) {
	if fa, aok := toFloat(a); aok {
		if fb, bok := toFloat(b); bok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			default:
				return 0, true
			}
		}
	}

	if ta, aok := toTime(a); aok {
		if tb, bok := toTime(b); bok {
			return ta.Compare(tb), true
		}
	}

	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return collateCompare(sa, sb), true
	}

	if ba, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			switch {
			case ba == bb:
				return 0, true
			case !ba:
				return -1, true
			default:
				return 1, true
			}
		}
	}

	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		if !strings.Contains(x, "-") {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
