package graph

import "github.com/tracenet/tracenet/internal/intern"

// Label decorates an Arc with a (string_tag, int_tag, callback) triple
// (spec.md §3). Labels are value types, copied into each Arc, and compose
// under nesting per spec.md §4.2.
type Label struct {
	String   intern.ID
	Int      int32
	Callback Action
}

// Actual reports whether any component of l is non-empty.
func (l Label) Actual() bool {
	return l.String != 0 || l.Int != 0 || l.Callback != nil
}

// Advance implements spec.md §4.2's label composition rule, applied when l
// (the descendant/inner label) passes out through outer (the enclosing
// arc's label):
//
//  1. if l is not actual, it is unchanged (stays void);
//  2. if outer is not actual, l is voided;
//  3. otherwise the labels merge: the string tags join with a "."
//     separator (collapsing to just outer's if l's string is "."), the int
//     tag is l's if nonzero else outer's, and the callback is l's if
//     present else outer's.
//
// table is used to intern the merged string tag; it must be the same table
// that interned both l.String and outer.String.
func (l Label) Advance(outer Label, table *intern.Table) Label {
	if !l.Actual() {
		return l
	}
	if !outer.Actual() {
		return Label{}
	}

	selfStr := table.Value(l.String)
	outerStr := table.Value(outer.String)

	// Deliberate divergence from the original implementation: the source
	// this was distilled from skips the string merge entirely when the
	// outer label's string is empty (leaving l's string untouched), even if
	// outer is otherwise actual via its int tag or callback. spec.md §4.2
	// rule (3) does not call out that sub-case, so this is a literal
	// reading of the merge rule rather than a port of that guard: an empty
	// outerStr simply merges as "".selfStr.
	var merged string
	if selfStr == "." {
		merged = outerStr
	} else {
		merged = outerStr + "." + selfStr
	}

	result := Label{String: table.Intern(merged)}
	if l.Int != 0 {
		result.Int = l.Int
	} else {
		result.Int = outer.Int
	}
	if l.Callback != nil {
		result.Callback = l.Callback
	} else {
		result.Callback = outer.Callback
	}
	return result
}
