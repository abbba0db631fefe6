package tracenet

import (
	"github.com/tracenet/tracenet/graph"
	"github.com/tracenet/tracenet/internal/pool"
)

// StateKind tags how a State was constructed (spec.md §3's State Variants).
type StateKind uint8

const (
	// Common states are created by an ordinary arc traversal.
	Common StateKind = iota
	// Split is created when a Positive-type call returns.
	Split
	// SplitShifted is created when an Invoke returns.
	SplitShifted
	// SplitExtended is created when an Extend returns.
	SplitExtended
)

func (k StateKind) String() string {
	switch k {
	case Common:
		return "COMMON"
	case Split:
		return "SPLIT"
	case SplitShifted:
		return "SPLIT_SHIFTED"
	case SplitExtended:
		return "SPLIT_EXTENDED"
	default:
		return "StateKind(?)"
	}
}

// ctxMode tracks the tri-state Context ownership of spec.md §3: a State
// either has no context, borrows one from an ancestor, or owns one it
// allocated itself.
type ctxMode uint8

const (
	ctxNone ctxMode = iota
	ctxBorrowed
	ctxOwned
)

// State is one node of the compressed analysis-state graph (spec.md §3):
// an immutable traversal record, except for its BLOCKED flag and its
// context-ownership upgrade. States live in a [pool.Arena] and are
// addressed by [pool.Pointer], never by plain Go pointer, so that the
// ancestor-below-descendant address ordering spec.md relies on
// (§3, §4.7, §8) is a property of allocation order rather than of the Go
// heap.
type State[I any] struct {
	kind StateKind

	// arc is "the Arc by which this State was reached" for Common states;
	// for Split-family states it instead holds the call site's own arc, so
	// that arc.Target and the nextArc cursor describe the continuation
	// (spec.md §4.5: "continuation = K's outgoing arcs").
	arc *graph.Arc[I]
	rng graph.Range

	// nextArc is this state's cursor into arc.Target.Arcs, i.e. S's
	// next_outgoing_arc() (spec.md §4.8).
	nextArc int

	ancestor pool.Pointer[State[I]]
	callee   pool.Pointer[State[I]]

	ctxMode ctxMode
	ctx     pool.Pointer[Context]

	blocked bool
}

// Kind returns the State's variant tag.
func (s *State[I]) Kind() StateKind { return s.kind }

// Blocked reports whether this state itself has been marked BLOCKED by a
// Negative arc's success (spec.md §4.5, §4.7); it does not consult the
// flags of its ancestors.
func (s *State[I]) Blocked() bool { return s.blocked }
