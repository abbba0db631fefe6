package graph

// ArcType classifies how an Arc's target call frame relates to its source
// (spec.md §3, GLOSSARY).
type ArcType uint8

const (
	// Simple is an ordinary transition: it does not open a new call frame.
	Simple ArcType = iota
	// Invoke calls a sub-network; on return, traversal resumes at the
	// caller's continuation, reporting the post-call position.
	Invoke
	// Extend is like Invoke, but the reported range absorbs the whole span
	// consumed by the call into the caller's own range.
	Extend
	// Positive is an assertion that must succeed without consuming input.
	Positive
	// Negative is an assertion that must fail; its caller is blocked if it
	// succeeds.
	Negative
)

// String implements fmt.Stringer.
func (t ArcType) String() string {
	switch t {
	case Simple:
		return "Simple"
	case Invoke:
		return "Invoke"
	case Extend:
		return "Extend"
	case Positive:
		return "Positive"
	case Negative:
		return "Negative"
	default:
		return "ArcType(?)"
	}
}

// Opens reports whether traversing an arc of this type opens a new call
// frame (i.e. becomes the callee of the state it produces).
func (t ArcType) Opens() bool { return t != Simple }

// Arc is one outgoing transition of a Node (spec.md §3): a target node, the
// acceptor that must accept a prefix of the input to traverse it, the arc's
// type, its label, and its entanglement group/priority (spec.md §4.6).
//
// An Arc is exclusively owned by its source Node; the engine only borrows
// it.
type Arc[I any] struct {
	Target       *Node[I]
	Acceptor     Acceptor[I]
	Type         ArcType
	Label        Label
	Entanglement int32
	Priority     int32

	// Actions run, in order, before the target Node's own Actions, when a
	// State traverses this arc (spec.md §6).
	Actions []Action
}
