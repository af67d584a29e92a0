package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"energylabel-log-server/internal/schema"
)

// KeyRequester asks the surrogate-key bank for the id to use for one
// dimension row, keyed by a content hash of its leaf values. hit is
// true when a concurrent insert already owns that id and this emitter
// must not write a row for it.
type KeyRequester func(table, contentHash string) (id uint64, hit bool)

// Insert emits the INSERT statements for one record (spec.md §4.5).
// resolved carries the ids the lookup phase already found, keyed by
// dimension table name; any dimension missing from resolved is either
// newly allocated via request or found to be a cache hit, in which
// case it is recorded but nothing is emitted for it. The Fact row is
// always emitted.
func Insert(root *schema.Table, rec *schema.Record, resolved map[string]uint64, request KeyRequester) map[string]string {
	ids := make(map[string]uint64, len(resolved))
	known := make(map[string]bool, len(resolved))
	for name, id := range resolved {
		ids[name] = id
		known[name] = true
	}

	dimension := func(t *schema.Table, _ *schema.Node, rec *schema.Record) string {
		if known[t.Name] {
			return ""
		}
		id, hit := request(t.Name, contentHash(t, rec))
		ids[t.Name] = id
		known[t.Name] = true
		if hit {
			return ""
		}
		return buildInsert(t, rec, ids, known)
	}
	fact := func(t *schema.Table, _ *schema.Node, rec *schema.Record) string {
		return buildInsert(t, rec, ids, known)
	}
	return Walk(root, rec, fact, dimension, false, nil)
}

func buildInsert(t *schema.Table, rec *schema.Record, ids map[string]uint64, known map[string]bool) string {
	cols := make([]string, 0, len(t.Columns)+1)
	vals := make([]string, 0, len(t.Columns)+1)

	for _, n := range t.Columns {
		switch n.Kind {
		case schema.KindInt:
			v, ok := rec.Value(n.RecordField)
			iv, _ := v.(int)
			cols = append(cols, QuoteIdentifier(n.Column))
			vals = append(vals, literalInt(iv, ok))
		case schema.KindText:
			v, ok := rec.Value(n.RecordField)
			sv, _ := v.(string)
			cols = append(cols, QuoteIdentifier(n.Column))
			vals = append(vals, literalString(sv, ok))
		case schema.KindFK:
			cols = append(cols, QuoteIdentifier(n.Column))
			vals = append(vals, literalID(ids[n.Target.Name], known[n.Target.Name]))
		}
	}

	if t.IsDimension() {
		cols = append(cols, QuoteIdentifier(childKeyColumn(t)))
		vals = append(vals, literalID(ids[t.Name], known[t.Name]))
	}

	return fmt.Sprintf("INSERT INTO %s(%s) VALUES (%s);",
		QuoteIdentifier(t.Name), strings.Join(cols, ", "), strings.Join(vals, ", "))
}

// contentHash joins a dimension's leaf values, in schema order,
// recursing through nested foreign keys. Two records that produce the
// same hash are considered to denote the same dimension row
// (spec.md §4.5) — this, not the SQL the hash feeds into, is what the
// surrogate-key bank de-dupes on.
func contentHash(t *schema.Table, rec *schema.Record) string {
	var parts []string
	var collect func(tbl *schema.Table)
	collect = func(tbl *schema.Table) {
		for i := range tbl.Columns {
			n := &tbl.Columns[i]
			switch n.Kind {
			case schema.KindInt:
				v, ok := rec.Value(n.RecordField)
				if !ok {
					parts = append(parts, "")
					continue
				}
				iv, _ := v.(int)
				parts = append(parts, strconv.Itoa(iv))
			case schema.KindText:
				v, ok := rec.Value(n.RecordField)
				if !ok {
					parts = append(parts, "")
					continue
				}
				sv, _ := v.(string)
				parts = append(parts, sv)
			case schema.KindFK:
				if n.Optional != "" {
					if _, ok := rec.Value(n.Optional); !ok {
						continue
					}
				}
				collect(n.Target)
			}
		}
	}
	collect(t)
	return strings.Join(parts, "#")
}
