// Package schema contains the single source of truth for the warehouse's
// star schema: a small recursive description of the fact table and its
// dimensions, and the fixed literal schema this system writes against.
package schema

// Record is one ingested telemetry run. The field set is
// application-specific and fixed for this system; fields are looked up
// by name through Value during SQL generation.
type Record struct {
	Score            int
	StatusCode       int
	ErrorMessage     *string
	PluginVersion    string
	PluginName       string
	ExtensionVersion string
	BrowserVersion   string
	BrowserName      string
	Path             string
	URL              string
}

// Field names recognized by Node.RecordField and Node.Optional.
const (
	FieldScore            = "score"
	FieldStatusCode       = "statusCode"
	FieldErrorMessage     = "errorMessage"
	FieldPluginVersion    = "pluginVersion"
	FieldPluginName       = "pluginName"
	FieldExtensionVersion = "extensionVersion"
	FieldBrowserVersion   = "browserVersion"
	FieldBrowserName      = "browserName"
	FieldPath             = "path"
	FieldURL              = "url"
)

// Value looks up a record field by name. The second return is false when
// the field is an optional text field that was not supplied.
func (r *Record) Value(field string) (any, bool) {
	switch field {
	case FieldScore:
		return r.Score, true
	case FieldStatusCode:
		return r.StatusCode, true
	case FieldErrorMessage:
		if r.ErrorMessage == nil {
			return nil, false
		}
		return *r.ErrorMessage, true
	case FieldPluginVersion:
		return r.PluginVersion, true
	case FieldPluginName:
		return r.PluginName, true
	case FieldExtensionVersion:
		return r.ExtensionVersion, true
	case FieldBrowserVersion:
		return r.BrowserVersion, true
	case FieldBrowserName:
		return r.BrowserName, true
	case FieldPath:
		return r.Path, true
	case FieldURL:
		return r.URL, true
	default:
		return nil, false
	}
}

// Kind tags the variant a Node holds. Modeled as a string enum over a
// tagged struct, the way core.DataType/core.ConstraintType classify
// columns and constraints rather than relying on a type hierarchy.
type Kind string

const (
	KindInt  Kind = "int"
	KindText Kind = "text"
	KindFK   Kind = "fk"
)

// Node is one column (or nested dimension reference) inside a table.
// Exactly one of the Kind-specific fields is meaningful, selected by Kind.
type Node struct {
	Kind Kind

	// Column is the SQL column name. Always set.
	Column string

	// RecordField names the Record field this Int/Text column is bound
	// to. Unused for Kind == KindFK.
	RecordField string

	// Optional names a Record field whose absence means this
	// dimension is skipped for the record (spec: optional_record_field).
	// Only meaningful for Kind == KindFK; empty means always required.
	Optional string

	// Target is the dimension table this FK references. Only set for
	// Kind == KindFK.
	Target *Table
}

// Table is a named table in the star schema: the root is the Fact
// table, every other table reachable through an FK node is a dimension.
type Table struct {
	// Name is the table's SQL name, also used as the traversal's map key.
	Name string
	// Columns lists this table's own Int/Text/ForeignKey nodes in
	// declaration order; SQL is emitted in this order.
	Columns []Node
	// ChildKey is the surrogate-key column name on this table
	// ("child_key" in spec terms). Empty for the Fact table, which has
	// no surrogate key of its own.
	ChildKey string
}

// IsDimension reports whether t has its own surrogate key column,
// i.e. whether it is a dimension rather than the fact root.
func (t *Table) IsDimension() bool {
	return t.ChildKey != ""
}

func intCol(column, field string) Node {
	return Node{Kind: KindInt, Column: column, RecordField: field}
}

func textCol(column, field string) Node {
	return Node{Kind: KindText, Column: column, RecordField: field}
}

func fk(column string, target *Table, optional string) Node {
	return Node{Kind: KindFK, Column: column, Target: target, Optional: optional}
}

// pluginNameTable, browserNameTable, etc. are constructed once at package init
// time and shared by value through pointers, matching spec.md's
// "process-wide constant" schema lifecycle.

var pluginNameTable = &Table{
	Name:     "PluginName",
	ChildKey: "child_key",
	Columns: []Node{
		textCol("name", FieldPluginName),
	},
}

var pluginTable = &Table{
	Name:     "Plugin",
	ChildKey: "child_key",
	Columns: []Node{
		fk("plugin_name_id", pluginNameTable, ""),
		textCol("version", FieldPluginVersion),
	},
}

var browserNameTable = &Table{
	Name:     "BrowserName",
	ChildKey: "child_key",
	Columns: []Node{
		textCol("name", FieldBrowserName),
	},
}

var browserTable = &Table{
	Name:     "Browser",
	ChildKey: "child_key",
	Columns: []Node{
		fk("browser_name_id", browserNameTable, ""),
		textCol("version", FieldBrowserVersion),
	},
}

var domainTable = &Table{
	Name:     "Domain",
	ChildKey: "child_key",
	Columns: []Node{
		textCol("host", FieldURL),
	},
}

var urlTable = &Table{
	Name:     "Url",
	ChildKey: "child_key",
	Columns: []Node{
		textCol("path", FieldPath),
		fk("domain_id", domainTable, ""),
	},
}

var errorMessageTable = &Table{
	Name:     "ErrorMessage",
	ChildKey: "child_key",
	Columns: []Node{
		textCol("message", FieldErrorMessage),
	},
}

// Fact is the process-wide schema constant: the root table, with every
// dimension inlined per spec.md's recursive ForeignKey node.
var Fact = &Table{
	Name: "Fact",
	Columns: []Node{
		intCol("score", FieldScore),
		intCol("status_code", FieldStatusCode),
		fk("error_message_id", errorMessageTable, FieldErrorMessage),
		fk("plugin_id", pluginTable, ""),
		fk("browser_id", browserTable, ""),
		fk("url_id", urlTable, ""),
		textCol("extension_version", FieldExtensionVersion),
	},
}

// Tables lists every table in the schema, fact first. This is the
// closed set from spec.md §3, and the set DDL/DropTables operate over.
func Tables() []*Table {
	seen := map[string]bool{}
	var out []*Table
	var walk func(t *Table)
	walk = func(t *Table) {
		if seen[t.Name] {
			return
		}
		seen[t.Name] = true
		out = append(out, t)
		for _, n := range t.Columns {
			if n.Kind == KindFK {
				walk(n.Target)
			}
		}
	}
	walk(Fact)
	return out
}
