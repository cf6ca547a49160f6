package queryeval

import (
	"sort"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/gridlens-labs/gridlens/pkg/core"
	"github.com/gridlens-labs/gridlens/pkg/sanitize"
)

var (
	collatorMu   sync.Mutex
	collatorOnce sync.Once
	collatorInst *collate.Collator
)

// collateCompare orders two strings with locale-aware collation. The shared
// collator is not safe for concurrent use, hence the mutex.
func collateCompare(a, b string) int {
	collatorOnce.Do(func() {
		collatorInst = collate.New(language.Und)
	})
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collatorInst.CompareString(a, b)
}

// sortRows orders rows by the named column. Numbers and dates sort
// naturally, strings by locale-aware collation; desc simply negates the
// comparator. Nil and incomparable values sort first so they surface
// rather than disappear at the end of paginated output.
func sortRows(rows []core.Row, column string, descending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		if descending {
			i, j = j, i
		}
		return lessRow(rows[i], rows[j], column)
	})
}

func lessRow(a, b core.Row, column string) bool {
	av, aok := a[column]
	bv, bok := b[column]

	if av == nil || !aok {
		return bv != nil && bok
	}
	if bv == nil || !bok {
		return false
	}

	if cmp, ok := compareValues(av, bv); ok {
		return cmp < 0
	}
	return stringify(av) < stringify(bv)
}

// paginate applies offset then limit, both clamped.
func paginate(rows []core.Row, offset, limit, maxRows int) []core.Row {
	offset = sanitize.ClampLimit(offset, 0)
	if offset >= len(rows) {
		return []core.Row{}
	}
	rows = rows[offset:]

	limit = sanitize.ClampLimit(limit, maxRows)
	if limit == 0 && maxRows > 0 {
		limit = maxRows
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// project reduces each row to the requested columns. Missing columns come
// through as nil so the output shape stays uniform.
func project(rows []core.Row, columns []string) []core.Row {
	out := make([]core.Row, len(rows))
	for i, row := range rows {
		projected := make(core.Row, len(columns))
		for _, col := range columns {
			projected[col] = row[col]
		}
		out[i] = projected
	}
	return out
}
