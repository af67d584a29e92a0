package sqlgen

import "energylabel-log-server/internal/schema"

// EmitFunc produces the SQL statement for one table during a Walk.
// viaNode is the ForeignKey node the parent used to reach this table,
// or nil for the root. Implementations that need to remember
// per-table state across the walk (resolved ids, allocated keys) do so
// by closing over their own map — Walk itself carries no state beyond
// the table→sql result it returns.
type EmitFunc func(t *schema.Table, viaNode *schema.Node, rec *schema.Record) string

// Condition decides whether to recurse into (and emit for) a
// dimension's subtree at all. A nil Condition always recurses.
type Condition func(child *schema.Table, viaNode *schema.Node, rec *schema.Record) bool

// Walk performs the generic post-order traversal spec.md §4.1
// describes, shared by the DDL, lookup, and insert emitters. For every
// foreign-key node, depth-first:
//
//  1. If alwaysExtend is false, skip the child when its optional
//     record field is present on the node but absent from rec.
//  2. Evaluate condition; if false, skip recursion and emit nothing
//     for this subtree.
//  3. Recurse with dimension as both callbacks.
//  4. At the current level, call fact (root) or dimension (otherwise).
//
// The result maps table name to emitted SQL; a later emission for the
// same table overwrites an earlier one, matching spec.md's
// "deepest/last wins in post-order" tie-break.
func Walk(root *schema.Table, rec *schema.Record, fact, dimension EmitFunc, alwaysExtend bool, condition Condition) map[string]string {
	results := make(map[string]string)
	walk(root, nil, rec, fact, dimension, alwaysExtend, condition, results, true)
	return results
}

func walk(t *schema.Table, viaNode *schema.Node, rec *schema.Record, fact, dimension EmitFunc, alwaysExtend bool, condition Condition, results map[string]string, isRoot bool) {
	for i := range t.Columns {
		n := &t.Columns[i]
		if n.Kind != schema.KindFK {
			continue
		}
		if !alwaysExtend && n.Optional != "" && rec != nil {
			if _, ok := rec.Value(n.Optional); !ok {
				continue
			}
		}
		if condition != nil && !condition(n.Target, n, rec) {
			continue
		}
		walk(n.Target, n, rec, fact, dimension, alwaysExtend, condition, results, false)
	}

	emit := dimension
	if isRoot {
		emit = fact
	}
	if sql := emit(t, viaNode, rec); sql != "" {
		results[t.Name] = sql
	}
}
