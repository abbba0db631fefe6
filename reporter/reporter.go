// Package reporter defines the Observer event sink the Processor notifies
// as it runs (spec.md §2, §4.10). It follows the shape of the teacher's
// reporter.Reporter/reporter.Handler split — a small interface the caller
// implements, plus a couple of ready-made adapters — widened to the set of
// traversal lifecycle events rather than parse errors/warnings.
package reporter

import "github.com/google/uuid"

// Event identifies which lifecycle point an Observer is being notified of
// (spec.md §2's Observer row, and the outer-loop skeleton of §4.8).
type Event uint8

const (
	// Push is recorded when the Processor creates a State (whether it is
	// then enqueued or deferred) and when a deferred State is moved back to
	// the queue (spec.md §3, Spectrum.push).
	Push Event = iota
	// Pull is recorded when the Processor dequeues a State to process.
	Pull
	// Deny is recorded when a State's entry actions refuse it (FlowControl).
	Deny
	// Entry is recorded once a State's entry actions have all accepted it.
	Entry
	// Trace is recorded when a State completes a trace (final node, no
	// enclosing callee).
	Trace
	// Block is recorded when a State is marked BLOCKED by a Negative arc's
	// success (spec.md §4.5, §4.7).
	Block
	// Split is recorded when a SPLIT/SPLIT_SHIFTED/SPLIT_EXTENDED state is
	// constructed on a call's return (spec.md §4.5).
	Split
	// Defer is recorded when a descendant is routed to the deferred set
	// because its target is entangled (spec.md §4.6).
	Defer
	// Evict is recorded when a State is reclaimed from the Pool.
	Evict
)

// String implements fmt.Stringer.
func (e Event) String() string {
	switch e {
	case Push:
		return "PUSH"
	case Pull:
		return "PULL"
	case Deny:
		return "DENY"
	case Entry:
		return "ENTRY"
	case Trace:
		return "TRACE"
	case Block:
		return "BLOCK"
	case Split:
		return "SPLIT"
	case Defer:
		return "DEFER"
	case Evict:
		return "EVICT"
	default:
		return "EVENT(?)"
	}
}

// Status is the periodic tick the Processor reports once per inner-loop
// iteration (spec.md §4.8's `observer.status(...)` call).
type Status struct {
	Generation  uuid.UUID // identifies the Run() this status belongs to
	Iteration   int
	QueueLen    int
	TraceCount  int
	DeferredLen int
	PoolUsage   int
	PoolPeak    int
	PoolEvicted int64
}

// Observer receives lifecycle events from a Processor (spec.md §4.10). It
// must be lightweight and must not retain the subject argument beyond the
// call: States are arena pointers, invalidated the moment the branch that
// produced them is rolled back or the Processor is reset.
//
// subject identifies the State the event concerns: for every Event, the
// Processor passes a tracenet.StateView, through which the State's arc,
// range and variables can be read.
type Observer interface {
	Notify(event Event, generation uuid.UUID, subject any)
	Status(s Status)
}

// Funcs adapts two plain functions to an Observer.
type Funcs struct {
	OnNotify func(event Event, generation uuid.UUID, subject any)
	OnStatus func(Status)
}

// Notify implements Observer.
func (f Funcs) Notify(event Event, generation uuid.UUID, subject any) {
	if f.OnNotify != nil {
		f.OnNotify(event, generation, subject)
	}
}

// Status implements Observer.
func (f Funcs) Status(s Status) {
	if f.OnStatus != nil {
		f.OnStatus(s)
	}
}

// Nop is an Observer that discards every event; it is the Processor's
// default when no Observer is configured.
var Nop Observer = Funcs{}
