package sqlgen

import (
	"fmt"
	"strings"

	"energylabel-log-server/internal/schema"
)

// columnStoreSuffix is appended to CREATE TABLE unless disabled by the
// operator's --mariadb-column-store=false configuration option.
const columnStoreSuffix = " ENGINE = ColumnStore"

// DDL emits one CREATE TABLE statement per table in the schema
// (spec.md §4.3). columnStore selects whether the ColumnStore engine
// suffix is appended.
func DDL(root *schema.Table, columnStore bool) map[string]string {
	emit := func(t *schema.Table, _ *schema.Node, _ *schema.Record) string {
		return createTable(t, columnStore)
	}
	return Walk(root, nil, emit, emit, true, nil)
}

// DropTables emits the trivial inverse of DDL: one DROP TABLE per table.
func DropTables(root *schema.Table) map[string]string {
	emit := func(t *schema.Table, _ *schema.Node, _ *schema.Record) string {
		return fmt.Sprintf("DROP TABLE %s;", QuoteIdentifier(t.Name))
	}
	return Walk(root, nil, emit, emit, true, nil)
}

func createTable(t *schema.Table, columnStore bool) string {
	cols := make([]string, 0, len(t.Columns)+1)
	for _, n := range t.Columns {
		switch n.Kind {
		case schema.KindInt:
			cols = append(cols, fmt.Sprintf("%s INT UNSIGNED", QuoteIdentifier(n.Column)))
		case schema.KindText:
			cols = append(cols, fmt.Sprintf("%s TINYTEXT", QuoteIdentifier(n.Column)))
		case schema.KindFK:
			cols = append(cols, fmt.Sprintf("%s INT UNSIGNED", QuoteIdentifier(n.Column)))
		}
	}
	if t.IsDimension() {
		cols = append(cols, fmt.Sprintf("%s INT UNSIGNED", QuoteIdentifier(childKeyColumn(t))))
	}

	suffix := ""
	if columnStore {
		suffix = columnStoreSuffix
	}

	return fmt.Sprintf("CREATE TABLE %s(%s)%s;", QuoteIdentifier(t.Name), strings.Join(cols, ", "), suffix)
}
