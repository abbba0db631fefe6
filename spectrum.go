package tracenet

import (
	"github.com/tracenet/tracenet/graph"
	"github.com/tracenet/tracenet/internal/pool"
)

// spectrum adapts one (from State, traversed Arc) pair to a graph.Spectrum:
// every Push call the Acceptor makes becomes a new descendant State
// (spec.md §3's Spectrum, §4.4).
type spectrum[I any] struct {
	p    *Processor[I]
	from pool.Pointer[State[I]]
	arc  *graph.Arc[I]
}

// Push implements graph.Spectrum.
func (s spectrum[I]) Push(from, to int) {
	s.p.spawn(s.from, s.arc, graph.Range{Begin: from, End: to})
}
