// Package sanitize guards string-built queries against injection. Every
// identifier destined for interpolation must pass the allow-list check, and
// every string literal goes through the escapers here before it is placed
// between quotes.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

// identifierPattern is the allow-list for table, schema and column names.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s is safe to interpolate as an
// identifier. Identifiers that pass are used verbatim, never quoted or
// rewritten.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Identifier validates s as an identifier for the named field. Failure is
// an InvalidIdentifierError naming the field; the value is never coerced
// or truncated.
func Identifier(field, s string) (string, error) {
	if !ValidIdentifier(s) {
		return "", &core.InvalidIdentifierError{Field: field, Value: s}
	}
	return s, nil
}

// EscapeLiteral makes s safe to embed between single quotes by doubling
// every single quote.
func EscapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// EscapeLike prepares s for use inside a LIKE/ILIKE pattern. Backslash is
// escaped first so user input cannot forge an escape sequence, then the
// wildcards, then quotes. The generated clause must declare ESCAPE '\'
// explicitly.
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return EscapeLiteral(s)
}

// ClampLimit truncates n to an integer row count inside [0, max]. max <= 0
// means no upper bound.
func ClampLimit(n, max int) int {
	if n < 0 {
		return 0
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
