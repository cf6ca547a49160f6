package sqlgen

import (
	"strings"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

// EnsureReadOnly rejects caller-supplied raw SQL that is not a plain
// read-only statement. The structural Builder never accepts raw text; this
// is defense in depth for the one escape hatch that does (QueryRaw on the
// proxy-backed adapters, and the proxy's own server-side check).
func EnsureReadOnly(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &core.UnsupportedOperationError{
			Operation: "raw query",
			Reason:    "empty statement",
		}
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return &core.UnsupportedOperationError{
			Operation: "raw query",
			Reason:    "only SELECT/WITH statements are allowed",
		}
	}

	// No statement stacking: a semicolon is only tolerated as a trailer.
	if i := strings.Index(trimmed, ";"); i >= 0 && i != len(trimmed)-1 {
		return &core.UnsupportedOperationError{
			Operation: "raw query",
			Reason:    "multiple statements are not allowed",
		}
	}

	return nil
}
