package sqlgen

import (
	"strconv"
	"strings"
)

// QuoteString inlines value as a single-quoted SQL literal, escaping
// embedded quotes the way spec.md's sanitizer requires: replace each
// `'` with `\'`. This (plus the bare NULL token for absent values) is
// the system's only defence against injection — the boundary input
// validator is responsible for rejecting out-of-shape payloads before
// a Record ever reaches this package.
func QuoteString(value string) string {
	var b strings.Builder
	b.Grow(len(value) + 2)
	b.WriteByte('\'')
	for _, r := range value {
		if r == '\'' {
			b.WriteString(`\'`)
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// QuoteIdentifier backtick-quotes a table/column identifier, doubling
// any embedded backtick. The schema is a fixed internal literal, never
// user input, but every identifier this package emits is quoted on
// principle the way the teacher's dialect generators quote identifiers.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Null is the bare (unquoted) token substituted for undefined record
// fields and unresolved dimension ids.
const Null = "NULL"

// literalString renders a text leaf value: NULL if absent, otherwise a
// quoted string literal.
func literalString(value string, present bool) string {
	if !present {
		return Null
	}
	return QuoteString(value)
}

// literalInt renders a numeric leaf value. Per spec.md §4.2, numbers
// are stringified and quoted identically to text.
func literalInt(value int, present bool) string {
	if !present {
		return Null
	}
	return QuoteString(strconv.Itoa(value))
}

// literalID renders a resolved (or not-yet-resolved) surrogate key.
func literalID(id uint64, known bool) string {
	if !known {
		return Null
	}
	return QuoteString(strconv.FormatUint(id, 10))
}
