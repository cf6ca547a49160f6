// Package sqlgen translates abstract queries into read-only SQL for
// backends that accept pushed-down predicates. It never interpolates a
// caller-supplied string without the checks in pkg/sanitize, and it only
// ever emits SELECT statements.
package sqlgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gridlens-labs/gridlens/pkg/core"
	"github.com/gridlens-labs/gridlens/pkg/sanitize"
)

// Builder generates SELECT statements for one table.
type Builder struct {
	// Table is the target table name; Schema optionally qualifies it.
	// Both are validated on every Build.
	Table  string
	Schema string

	// MaxRows caps LIMIT. <= 0 means no cap.
	MaxRows int
}

// Build translates q into a single SELECT statement. Identifier validation
// failures abort before any clause is assembled, so a rejected query never
// produces partial SQL.
func (b Builder) Build(q *core.Query) (string, error) {
	table, err := b.qualifiedTable()
	if err != nil {
		return "", err
	}

	if q == nil {
		q = &core.Query{}
	}

	selectList := "*"
	if len(q.Columns) > 0 {
		cols := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			if cols[i], err = sanitize.Identifier("column", c); err != nil {
				return "", err
			}
		}
		selectList = strings.Join(cols, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", selectList, table)

	if len(q.Filters) > 0 {
		clauses := make([]string, len(q.Filters))
		for i, f := range q.Filters {
			if clauses[i], err = filterClause(f); err != nil {
				return "", err
			}
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}

	if q.OrderBy != "" {
		col, err := sanitize.Identifier("orderBy", q.OrderBy)
		if err != nil {
			return "", err
		}
		direction := "ASC"
		if q.Descending {
			direction = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", col, direction)
	}

	limit := sanitize.ClampLimit(q.Limit, b.MaxRows)
	if limit == 0 && b.MaxRows > 0 {
		limit = b.MaxRows
	}
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	if offset := sanitize.ClampLimit(q.Offset, 0); offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", offset)
	}

	return sb.String(), nil
}

// qualifiedTable validates and joins schema and table.
func (b Builder) qualifiedTable() (string, error) {
	table, err := sanitize.Identifier("table", b.Table)
	if err != nil {
		return "", err
	}
	if b.Schema == "" {
		return table, nil
	}
	schema, err := sanitize.Identifier("schema", b.Schema)
	if err != nil {
		return "", err
	}
	return schema + "." + table, nil
}

// filterClause renders a single predicate.
func filterClause(f core.Filter) (string, error) {
	col, err := sanitize.Identifier("filter column", f.Column)
	if err != nil {
		return "", err
	}

	switch f.Operator {
	case core.OpEq, core.OpNeq, core.OpGt, core.OpLt, core.OpGte, core.OpLte:
		if f.Value == nil {
			if f.Operator == core.OpEq {
				return col + " IS NULL", nil
			}
			if f.Operator == core.OpNeq {
				return col + " IS NOT NULL", nil
			}
			return "", &core.UnsupportedOperationError{
				Operation: "query translation",
				Reason:    fmt.Sprintf("operator %q cannot compare against null", f.Operator),
			}
		}
		lit, err := literal(f.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", col, string(f.Operator), lit), nil

	case core.OpContains:
		// The escape character is declared explicitly so user input cannot
		// redefine wildcard semantics.
		pattern := sanitize.EscapeLike(stringValue(f.Value))
		return fmt.Sprintf(`%s ILIKE '%%%s%%' ESCAPE '\'`, col, pattern), nil

	case core.OpIn:
		values, ok := f.Value.([]any)
		if !ok {
			return "", &core.UnsupportedOperationError{
				Operation: "query translation",
				Reason:    fmt.Sprintf("operator %q requires a slice value, got %T", core.OpIn, f.Value),
			}
		}
		if len(values) == 0 {
			// An empty IN list matches nothing.
			return "1 = 0", nil
		}
		parts := make([]string, len(values))
		for i, v := range values {
			if parts[i], err = literal(v); err != nil {
				return "", err
			}
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(parts, ", ")), nil

	default:
		return "", &core.UnsupportedOperationError{
			Operation: "query translation",
			Reason:    fmt.Sprintf("unknown operator %q", f.Operator),
		}
	}
}

// literal renders a value as a safely escaped SQL literal.
func literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + sanitize.EscapeLiteral(x) + "'", nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case time.Time:
		return "'" + x.UTC().Format(time.RFC3339) + "'", nil
	default:
		return "", &core.UnsupportedOperationError{
			Operation: "query translation",
			Reason:    fmt.Sprintf("cannot render %T as a SQL literal", v),
		}
	}
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
