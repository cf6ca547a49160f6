package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

// filterOperators maps the CLI operator tokens to query operators.
var filterOperators = map[string]core.Operator{
	"eq":       core.OpEq,
	"neq":      core.OpNeq,
	"gt":       core.OpGt,
	"gte":      core.OpGte,
	"lt":       core.OpLt,
	"lte":      core.OpLte,
	"contains": core.OpContains,
	"in":       core.OpIn,
}

// newFetchCommand fetches rows from one source with optional constraints.
func newFetchCommand() *cobra.Command {
	var (
		columns []string
		filters []string
		limit   int
		offset  int
		orderBy string
		desc    bool
		format  string
	)

	cmd := &cobra.Command{
		Use:   "fetch <source>",
		Short: "Fetch rows from a source",
		Long: `Fetch rows from a configured source, optionally filtered, sorted and
paginated. Filters use the form column:operator:value, for example:

  gridlens fetch orders --filter status:eq:shipped --filter total:gt:100
  gridlens fetch events --filter name:in:login,logout --order-by ts --desc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := FromContext(cmd.Context())

			q := &core.Query{
				Columns:    columns,
				Limit:      limit,
				Offset:     offset,
				OrderBy:    orderBy,
				Descending: desc,
			}
			for _, raw := range filters {
				f, err := parseFilter(raw)
				if err != nil {
					return err
				}
				q.Filters = append(q.Filters, f)
			}

			adp, _, err := app.connectSource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() { _ = adp.Disconnect() }()

			data, err := adp.FetchData(cmd.Context(), q)
			if err != nil {
				return err
			}
			return renderRows(cmd.OutOrStdout(), data.Columns, data.Rows, format)
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to project (default: all)")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Filter as column:operator:value (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to return (0 = source cap)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	cmd.Flags().StringVar(&orderBy, "order-by", "", "Column to sort by")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format (table|json|csv)")
	return cmd
}

// parseFilter parses a column:operator:value expression. The value keeps
// any further colons (timestamps, URLs).
func parseFilter(raw string) (core.Filter, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return core.Filter{}, fmt.Errorf("invalid filter %q: expected column:operator:value", raw)
	}

	op, ok := filterOperators[parts[1]]
	if !ok {
		known := make([]string, 0, len(filterOperators))
		for token := range filterOperators {
			known = append(known, token)
		}
		sort.Strings(known)
		return core.Filter{}, fmt.Errorf("invalid filter operator %q (one of %s)", parts[1], strings.Join(known, ", "))
	}

	if op == core.OpIn {
		items := strings.Split(parts[2], ",")
		values := make([]any, len(items))
		for i, item := range items {
			values[i] = coerceValue(strings.TrimSpace(item))
		}
		return core.Filter{Column: parts[0], Operator: op, Value: values}, nil
	}
	return core.Filter{Column: parts[0], Operator: op, Value: coerceValue(parts[2])}, nil
}

// coerceValue turns a CLI string into the most specific scalar it parses
// as: int, float, bool, null, else string.
func coerceValue(s string) any {
	if s == "null" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
