package tracenet

import (
	"github.com/tracenet/tracenet/graph"
	"github.com/tracenet/tracenet/internal/pool"
	"github.com/tracenet/tracenet/value"
)

// Trace is a handle onto one completed traversal: a State that landed on a
// final node with no enclosing callee (spec.md §4.5). It is the exported
// trace-walking API of spec.md §6 — Arc/Range/Val/Ancestor — and stays
// valid until the Processor that produced it is next Reset.
type Trace[I any] struct {
	p   *Processor[I]
	ptr pool.Pointer[State[I]]
}

// Arc returns the Arc by which this trace's State was reached.
func (t Trace[I]) Arc() *graph.Arc[I] { return t.p.statePool.At(t.ptr).arc }

// Range returns the input range this trace's State consumed.
func (t Trace[I]) Range() graph.Range { return t.p.statePool.At(t.ptr).rng }

// Kind returns the State variant this trace ends on.
func (t Trace[I]) Kind() StateKind { return t.p.statePool.At(t.ptr).kind }

// Val reads a trace variable visible at this point, per spec.md §4.9.
func (t Trace[I]) Val(key string) value.Variable { return t.p.valAt(t.ptr, key) }

// Ancestor returns the state this trace descended from, if any. Walking
// Ancestor repeatedly reconstructs the whole accepted path back to the
// Processor's entry.
func (t Trace[I]) Ancestor() (Trace[I], bool) {
	a := t.p.statePool.At(t.ptr).ancestor
	if a.Nil() {
		return Trace[I]{}, false
	}
	return Trace[I]{t.p, a}, true
}

// StateView is the subject passed to a reporter.Observer's Notify call: a
// dereferenceable handle onto the State an event concerns, in the spirit of
// Trace but for a State that may not (yet, or ever) complete a trace. Like
// Trace, it is only valid for the duration of the Notify call it was handed
// to — the Pool slot it addresses may be rolled back, reallocated, or
// (for an EVICT event, whose State is already reclaimed by the time the
// Observer is notified) already zeroed by the time Notify returns.
type StateView[I any] struct {
	p  *Processor[I]
	sp pool.Pointer[State[I]]
}

// Arc returns the Arc by which this State was reached.
func (v StateView[I]) Arc() *graph.Arc[I] { return v.p.statePool.At(v.sp).arc }

// Range returns the input range this State has consumed.
func (v StateView[I]) Range() graph.Range { return v.p.statePool.At(v.sp).rng }

// Kind returns the State's variant tag.
func (v StateView[I]) Kind() StateKind { return v.p.statePool.At(v.sp).kind }

// Blocked reports whether this State has been marked BLOCKED by a Negative
// arc's success (spec.md §4.5, §4.7).
func (v StateView[I]) Blocked() bool { return v.p.statePool.At(v.sp).blocked }

// Val reads a trace variable visible at this point, per spec.md §4.9.
func (v StateView[I]) Val(key string) value.Variable { return v.p.valAt(v.sp, key) }
