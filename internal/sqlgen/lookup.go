package sqlgen

import (
	"fmt"
	"strings"

	"energylabel-log-server/internal/schema"
)

// Lookup emits one SELECT per dimension required by rec, resolving
// whether its row already exists (spec.md §4.4, "getKeys"). The Fact
// table itself is never looked up — it has no existing-row concept.
//
// MAX is used instead of LIMIT 1 because the column engine enforces no
// uniqueness constraint; COALESCE is deliberately not applied so an
// empty result set (NULL) signals "dimension row absent" to the
// insert emitter, rather than being papered over with a sentinel zero.
func Lookup(root *schema.Table, rec *schema.Record) map[string]string {
	fact := func(*schema.Table, *schema.Node, *schema.Record) string { return "" }
	dimension := func(t *schema.Table, _ *schema.Node, rec *schema.Record) string {
		return lookupSelect(t, rec)
	}
	return Walk(root, rec, fact, dimension, false, nil)
}

func lookupSelect(t *schema.Table, rec *schema.Record) string {
	var joins []string
	var wheres []string

	var collect func(tbl *schema.Table)
	collect = func(tbl *schema.Table) {
		for i := range tbl.Columns {
			n := &tbl.Columns[i]
			switch n.Kind {
			case schema.KindInt:
				v, ok := rec.Value(n.RecordField)
				iv, _ := v.(int)
				wheres = append(wheres, fmt.Sprintf("%s.%s = %s",
					QuoteIdentifier(tbl.Name), QuoteIdentifier(n.Column), literalInt(iv, ok)))
			case schema.KindText:
				v, ok := rec.Value(n.RecordField)
				sv, _ := v.(string)
				wheres = append(wheres, fmt.Sprintf("%s.%s = %s",
					QuoteIdentifier(tbl.Name), QuoteIdentifier(n.Column), literalString(sv, ok)))
			case schema.KindFK:
				if n.Optional != "" {
					if _, ok := rec.Value(n.Optional); !ok {
						continue
					}
				}
				child := n.Target
				joins = append(joins, fmt.Sprintf("INNER JOIN %s ON %s.%s = %s.%s",
					QuoteIdentifier(child.Name), QuoteIdentifier(tbl.Name), QuoteIdentifier(n.Column),
					QuoteIdentifier(child.Name), QuoteIdentifier(childKeyColumn(child))))
				collect(child)
			}
		}
	}
	collect(t)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT MAX(%s.%s) AS id FROM %s",
		QuoteIdentifier(t.Name), QuoteIdentifier(childKeyColumn(t)), QuoteIdentifier(t.Name))
	if len(joins) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(joins, " "))
	}
	if len(wheres) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(wheres, " AND "))
	}
	sb.WriteString(";")
	return sb.String()
}
