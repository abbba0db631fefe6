package graph

// Node is a fan-out of outgoing Arcs (spec.md §3). A Node is final iff it
// has no outgoing arcs. Nodes may additionally carry Actions executed on
// entry; the script layer attaches these, the engine only invokes them.
//
// A Node is exclusively owned by the network that builds it; the engine
// only ever borrows it.
type Node[I any] struct {
	Arcs []*Arc[I]

	// Entanglement groups this node's incoming choice with others sharing
	// the same nonzero id, for the prioritized-choice reorganization of
	// spec.md §4.6. Zero means "not entangled".
	Entanglement int32

	// Actions run, in order, after any entered Arc's own actions, when a
	// State lands on this node (spec.md §6).
	Actions []Action
}

// Final reports whether n has no outgoing arcs.
func (n *Node[I]) Final() bool { return len(n.Arcs) == 0 }
