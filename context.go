package tracenet

import (
	"fmt"

	"github.com/tracenet/tracenet/internal/pool"
	"github.com/tracenet/tracenet/value"
)

// markState records, per key, whether a Context is the site of an
// outstanding Push (spec.md §4.9's push/pop pair).
type markState uint8

const (
	markNone markState = iota
	markPushed
	markPoppedAfterPush
)

// Context is one scope of the trace-variable chain: a local key→Variable
// map, its parent (nil at the root), and the push/pop marks recorded at this
// scope. Contexts live in their own [pool.Arena], separate from the State
// arena, since Context does not need to be generic over the input type
// (spec.md §3, §4.9).
//
// Array-kind Variables are themselves backed by a Context (spec.md §3:
// "Arrays are implemented as contexts"), so Context also implements
// value.Mapping via [ctxHandle].
type Context struct {
	parent pool.Pointer[Context]

	order []string
	slots map[string]*value.Variable
	marks map[string]markState
}

func (c *Context) define(key string, v value.Variable) *value.Variable {
	if c.slots == nil {
		c.slots = map[string]*value.Variable{}
	}
	if _, ok := c.slots[key]; !ok {
		c.order = append(c.order, key)
	}
	val := v
	c.slots[key] = &val
	return c.slots[key]
}

// ctxHandle binds a Context pointer to the arena it lives in, so the
// value.Mapping methods (and push/pop) can walk the parent chain. It is the
// concrete type behind every Array Variable's Mapping, and behind a State's
// effective context once resolved.
type ctxHandle struct {
	arena *pool.Arena[Context]
	ptr   pool.Pointer[Context]
}

func (h ctxHandle) ctx() *Context { return h.arena.At(h.ptr) }

func (h ctxHandle) parent() (ctxHandle, bool) {
	p := h.ctx().parent
	if p.Nil() {
		return ctxHandle{}, false
	}
	return ctxHandle{h.arena, p}, true
}

// Ref implements value.Mapping: derive key from the nearest ancestor if not
// yet defined locally, then return a mutable reference to it.
func (h ctxHandle) Ref(key string) *value.Variable {
	c := h.ctx()
	if v, ok := c.slots[key]; ok {
		return v
	}
	return c.define(key, h.derive(key))
}

// Reset is like Ref but seeds a newly-defined key with value.Nil() instead
// of deriving it from an ancestor (spec.md §4.9's "reset" branch of ref).
func (h ctxHandle) Reset(key string) *value.Variable {
	c := h.ctx()
	if v, ok := c.slots[key]; ok {
		return v
	}
	return c.define(key, value.Nil())
}

// Val implements value.Mapping: read key without creating it.
func (h ctxHandle) Val(key string) value.Variable {
	c := h.ctx()
	if v, ok := c.slots[key]; ok {
		return *v
	}
	return h.derive(key)
}

// derive walks the parent chain for key's current value, by value — which,
// since Variable's Array kind carries its Mapping as an interface reference,
// naturally gives "arrays shared by the underlying context pointer, scalars
// copied by value" (spec.md §4.9) without any special-casing.
func (h ctxHandle) derive(key string) value.Variable {
	parent, ok := h.parent()
	if !ok {
		return value.Nil()
	}
	return parent.Val(key)
}

// Entries implements value.Mapping.
func (h ctxHandle) Entries() []value.Entry {
	c := h.ctx()
	out := make([]value.Entry, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, value.Entry{Key: k, Value: *c.slots[k]})
	}
	return out
}

// IsDefined walks the chain applying pred to the first definition found.
func (h ctxHandle) IsDefined(key string, pred func(value.Variable) bool) bool {
	c := h.ctx()
	if v, ok := c.slots[key]; ok {
		return pred(*v)
	}
	parent, ok := h.parent()
	if !ok {
		return pred(value.Nil())
	}
	return parent.IsDefined(key, pred)
}

// Push marks key as saved at this scope (spec.md §4.9).
func (h ctxHandle) Push(key string) error {
	c := h.ctx()
	if c.marks == nil {
		c.marks = map[string]markState{}
	}
	if c.marks[key] == markPushed {
		return fmt.Errorf("%w: key %q already pushed at this scope", ErrLogicViolation, key)
	}
	c.marks[key] = markPushed
	return nil
}

// Pop restores key to the value it had at the nearest ancestor scope with an
// outstanding Push, by walking the parent chain and counting nested
// push/pop pairs per key (spec.md §4.9).
func (h ctxHandle) Pop(key string) error {
	c := h.ctx()
	if c.marks == nil {
		c.marks = map[string]markState{}
	}
	v, ok := h.findPushed(key)
	if !ok {
		return fmt.Errorf("%w: pop of key %q without a matching push", ErrLogicViolation, key)
	}
	c.marks[key] = markPoppedAfterPush
	c.define(key, v)
	return nil
}

func (h ctxHandle) findPushed(key string) (value.Variable, bool) {
	need := 1
	cur, ok := h.parent()
	for ok {
		c := cur.ctx()
		switch c.marks[key] {
		case markPushed:
			need--
			if need == 0 {
				if v, ok := c.slots[key]; ok {
					return *v, true
				}
				return value.Nil(), true
			}
		case markPoppedAfterPush:
			need++
		}
		cur, ok = cur.parent()
	}
	return value.Nil(), false
}
