// Package restgen translates abstract queries into PostgREST-style query
// parameters, the filter dialect spoken by hosted Postgres platforms.
// Identifier validation mirrors pkg/sqlgen: any column that fails the
// allow-list aborts translation before a single parameter is emitted.
package restgen

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gridlens-labs/gridlens/pkg/core"
	"github.com/gridlens-labs/gridlens/pkg/sanitize"
)

// operatorTokens maps abstract operators to PostgREST filter tokens.
var operatorTokens = map[core.Operator]string{
	core.OpEq:  "eq",
	core.OpNeq: "neq",
	core.OpGt:  "gt",
	core.OpLt:  "lt",
	core.OpGte: "gte",
	core.OpLte: "lte",
}

// Params translates q into PostgREST query parameters. maxRows caps the
// limit the same way the SQL builder does.
func Params(q *core.Query, maxRows int) (url.Values, error) {
	params := url.Values{}
	if q == nil {
		q = &core.Query{}
	}

	if len(q.Columns) > 0 {
		cols := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			col, err := sanitize.Identifier("column", c)
			if err != nil {
				return nil, err
			}
			cols[i] = col
		}
		params.Set("select", strings.Join(cols, ","))
	}

	for _, f := range q.Filters {
		col, err := sanitize.Identifier("filter column", f.Column)
		if err != nil {
			return nil, err
		}
		expr, err := filterExpr(f)
		if err != nil {
			return nil, err
		}
		params.Add(col, expr)
	}

	if q.OrderBy != "" {
		col, err := sanitize.Identifier("orderBy", q.OrderBy)
		if err != nil {
			return nil, err
		}
		direction := "asc"
		if q.Descending {
			direction = "desc"
		}
		params.Set("order", col+"."+direction)
	}

	limit := sanitize.ClampLimit(q.Limit, maxRows)
	if limit == 0 && maxRows > 0 {
		limit = maxRows
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset := sanitize.ClampLimit(q.Offset, 0); offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	return params, nil
}

// filterExpr renders the operator.value part of one predicate.
func filterExpr(f core.Filter) (string, error) {
	if token, ok := operatorTokens[f.Operator]; ok {
		if f.Value == nil {
			switch f.Operator {
			case core.OpEq:
				return "is.null", nil
			case core.OpNeq:
				return "not.is.null", nil
			default:
				return "", &core.UnsupportedOperationError{
					Operation: "query translation",
					Reason:    fmt.Sprintf("operator %q cannot compare against null", f.Operator),
				}
			}
		}
		return token + "." + quoteValue(stringValue(f.Value)), nil
	}

	switch f.Operator {
	case core.OpContains:
		// PostgREST treats * as the wildcard; literal wildcards in user
		// input are matched verbatim by quoting the pattern.
		return "ilike." + quoteValue("*"+stringValue(f.Value)+"*"), nil
	case core.OpIn:
		values, ok := f.Value.([]any)
		if !ok {
			return "", &core.UnsupportedOperationError{
				Operation: "query translation",
				Reason:    fmt.Sprintf("operator %q requires a slice value, got %T", core.OpIn, f.Value),
			}
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = quoteValue(stringValue(v))
		}
		return "in.(" + strings.Join(parts, ",") + ")", nil
	default:
		return "", &core.UnsupportedOperationError{
			Operation: "query translation",
			Reason:    fmt.Sprintf("unknown operator %q", f.Operator),
		}
	}
}

// quoteValue wraps values containing PostgREST reserved characters in
// double quotes so user input cannot terminate a filter expression.
func quoteValue(s string) string {
	if !strings.ContainsAny(s, `,.:()" `) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
