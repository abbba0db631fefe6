// Package graph defines the static, externally-constructed network model
// that the traversal engine reads: Nodes, Arcs, Labels, and the interfaces
// (Acceptor, Action, Spectrum) through which the engine talks to external
// collaborators (spec.md §1, §3, §6). Nothing in this package builds a
// network; that remains the job of whatever script compiler or DSL sits
// above the engine.
package graph

// Range is a half-open span of indices into the whole input, [Begin, End).
// Iterators in spec.md's data model become plain int indices here: the
// engine never needs random-access into the input itself, only into the
// positions acceptors report.
type Range struct {
	Begin, End int
}

// Len returns the number of input units spanned by r.
func (r Range) Len() int { return r.End - r.Begin }

// Empty reports whether r spans zero input units.
func (r Range) Empty() bool { return r.Begin == r.End }
