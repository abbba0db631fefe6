package graph

import (
	"errors"

	"github.com/tracenet/tracenet/value"
)

// ErrDeny is the sentinel FlowControl signal (spec.md §6, §7): an Action
// returns an error wrapping ErrDeny to drop the State it was attached to,
// without that being treated as a propagating error.
var ErrDeny = errors.New("graph: action denied entry")

// Frame is the view of a traversal State exposed to an Action. It exists so
// this package can define the Action interface without importing the
// package that implements State, which in turn must import graph for
// Node/Arc/Label — Frame is the seam that breaks that cycle.
type Frame interface {
	// Range is the input range the State being entered has consumed.
	Range() Range
	// Val reads a trace variable by walking the state's Context chain,
	// per spec.md §4.9; it never creates the key.
	Val(key string) value.Variable
	// Ref returns a mutable reference to key, deriving it from the nearest
	// ancestor context if it is not yet defined locally (spec.md §4.9).
	Ref(key string) *value.Variable
	// Reset is like Ref, but seeds a newly-defined key with its default
	// value instead of deriving one from an ancestor.
	Reset(key string) *value.Variable
	// IsDefined walks the Context chain and applies pred to the first
	// definition of key found, or to value.Nil() if none exists.
	IsDefined(key string, pred func(value.Variable) bool) bool
	// Push marks key as saved at this scope, so a later Pop restores it.
	Push(key string) error
	// Pop restores key to the value it had at its nearest unmatched Push.
	Pop(key string) error
}

// Action is an optional semantic action attached to an Arc or a Node,
// supplied by the script layer and executed when a State traverses it
// (spec.md §6). Arc actions run before the target Node's actions. Returning
// an error that wraps ErrDeny causes the State to be dropped (observed as
// DENY); any other error is a propagating failure.
type Action interface {
	Enter(Frame) error
}

// ActionFunc adapts a plain function to an Action.
type ActionFunc func(Frame) error

// Enter implements Action.
func (f ActionFunc) Enter(fr Frame) error { return f(fr) }
