package sqlgen

import (
	"fmt"

	"energylabel-log-server/internal/schema"
)

// SchemaMisuseError indicates the schema literal itself is broken — an
// emitter was asked to resolve the surrogate key column of a subtree
// that has none (spec.md §7). It should never occur against the
// schema this system ships; seeing it means a programming error in
// the schema literal, not bad input, so childKeyColumn panics with it
// rather than threading an error return through every emitter.
type SchemaMisuseError struct {
	Msg string
}

func (e *SchemaMisuseError) Error() string { return fmt.Sprintf("schema misuse: %s", e.Msg) }

// childKeyColumn returns t's surrogate key column name, panicking with
// a SchemaMisuseError if t has none. Every table the lookup and insert
// emitters join or select through is required by spec.md §3 to be a
// dimension with its own child_key; a table reached here without one
// means the schema literal itself is malformed.
func childKeyColumn(t *schema.Table) string {
	if t.ChildKey == "" {
		panic(&SchemaMisuseError{Msg: fmt.Sprintf("table %s has no child_key column", t.Name)})
	}
	return t.ChildKey
}
