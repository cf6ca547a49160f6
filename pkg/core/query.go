package core

// Operator is a filter comparison operator.
type Operator string

const (
	OpEq       Operator = "="
	OpNeq      Operator = "!="
	OpGt       Operator = ">"
	OpLt       Operator = "<"
	OpGte      Operator = ">="
	OpLte      Operator = "<="
	OpContains Operator = "contains"
	OpIn       Operator = "in"
)

// Filter is one column predicate. For OpIn, Value must be a slice; for
// OpContains it is matched as a case-insensitive substring.
type Filter struct {
	Column   string
	Operator Operator
	Value    any
}

// Query is the abstract request every adapter understands. Every field is
// optional: a zero value means "no constraint", not "empty result".
type Query struct {
	// Columns projects the result to the named columns. Empty keeps all.
	Columns []string

	// Filters are AND-ed together. OR and grouping are out of scope.
	Filters []Filter

	// Limit caps returned rows; 0 means no explicit limit (the adapter's
	// MaxRowsPerQuery still applies). Offset skips rows before the limit.
	Limit  int
	Offset int

	// OrderBy names a single sort column; empty means source order.
	OrderBy    string
	Descending bool
}

// IsZero reports whether the query carries no constraints at all.
func (q *Query) IsZero() bool {
	return q == nil ||
		(len(q.Columns) == 0 && len(q.Filters) == 0 &&
			q.Limit == 0 && q.Offset == 0 && q.OrderBy == "")
}
