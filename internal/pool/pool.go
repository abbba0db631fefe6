// Package pool implements a bump-allocated arena with tail-eviction.
//
// An Arena reserves its full capacity up front (either on the heap or
// backed by a memory-mapped file) and only ever grows its high-water mark by
// appending at the tail. The only way to shrink it is [Arena.Evict], which
// succeeds exactly when the pointer being evicted is the most recently
// allocated element still live — i.e. eviction is stack discipline, not a
// general allocator. This mirrors how a traversal engine frees the states of
// a branch that just died: almost always the most recently allocated ones.
package pool

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

// ErrExhausted is returned by Allocate when the arena is at capacity.
var ErrExhausted = errors.New("pool: arena exhausted")

// Pointer is a compressed, 1-based index into an Arena[T]. The zero value is
// nil. Pointers allocated from the same Arena are ordered: a lower value was
// allocated earlier and therefore lives at a lower "address" for the
// purposes of ancestor-ordering invariants.
type Pointer[T any] int32

// Nil reports whether p is the nil pointer.
func (p Pointer[T]) Nil() bool { return p == 0 }

// Less reports whether p was allocated strictly before q, i.e. p's backing
// slot sits at a lower address than q's.
func (p Pointer[T]) Less(q Pointer[T]) bool { return p != 0 && q != 0 && p < q }

func (p Pointer[T]) index() int { return int(p) - 1 }

// Arena is a fixed-capacity bump allocator for values of type T.
//
// The zero Arena is not usable; construct one with [New] or [Open].
type Arena[T any] struct {
	buf     []T
	backing mmap.MMap // non-nil iff file-backed
	file    *os.File  // non-nil iff file-backed

	len, peak int
	evicted   int64 // bytes freed over the arena's lifetime, cumulative
}

// New creates a heap-backed arena with room for capacity elements.
func New[T any](capacity int) *Arena[T] {
	return &Arena[T]{buf: make([]T, capacity)}
}

// Open creates a memory-mapped-file-backed arena with room for capacity
// elements. The file at path is created (truncated if it already exists)
// and sized to hold the arena; it is removed from disk when the arena is
// closed, since the mapping is a private scratch region for this Processor
// alone (spec: "MUST NOT be read by anything other than the creating
// Processor instance").
func Open[T any](path string, capacity int) (*Arena[T], error) {
	var zero T
	width := int(unsafe.Sizeof(zero))
	size := int64(width) * int64(capacity)
	if size == 0 {
		size = int64(os.Getpagesize())
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("pool: opening swap file: %w", err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("pool: sizing swap file: %w", err)
	}

	backing, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("pool: mapping swap file: %w", err)
	}

	buf := unsafe.Slice((*T)(unsafe.Pointer(&backing[0])), capacity)
	return &Arena[T]{buf: buf, backing: backing, file: f}, nil
}

// Close releases the arena's memory-mapped backing, if any, and removes its
// swap file. Heap-backed arenas need not be closed.
func (a *Arena[T]) Close() error {
	if a.backing == nil {
		return nil
	}
	path := a.file.Name()
	errUnmap := a.backing.Unmap()
	errClose := a.file.Close()
	errRemove := os.Remove(path)
	a.backing = nil
	a.file = nil
	a.buf = nil
	return errors.Join(errUnmap, errClose, errRemove)
}

// Allocate reserves the next slot at the tail of the arena and stores value
// in it, returning a pointer to the slot. It fails with [ErrExhausted] if
// the arena is at capacity.
func (a *Arena[T]) Allocate(value T) (Pointer[T], error) {
	if a.len >= len(a.buf) {
		return 0, ErrExhausted
	}
	a.buf[a.len] = value
	a.len++
	a.peak = max(a.peak, a.len)
	return Pointer[T](a.len), nil
}

// At dereferences p. It panics if p is nil or does not belong to this arena
// (callers never construct pointers by hand, so this indicates a logic bug).
func (a *Arena[T]) At(p Pointer[T]) *T {
	if p.Nil() || p.index() >= len(a.buf) {
		panic("pool: dereference of invalid pointer")
	}
	return &a.buf[p.index()]
}

// Evict retracts the tail of the arena by exactly one element, iff p points
// at the current tail element. It returns false and leaves the arena
// unchanged otherwise. This is the arena's only deallocation primitive.
func (a *Arena[T]) Evict(p Pointer[T]) bool {
	if p.Nil() || int(p) != a.len {
		return false
	}
	var zero T
	a.len--
	a.buf[a.len] = zero // drop references so the GC can reclaim them
	a.evicted += int64(unsafe.Sizeof(zero))
	return true
}

// Clear resets the arena's tail to zero, keeping its capacity, and folds the
// freed region into the cumulative eviction counter.
func (a *Arena[T]) Clear() {
	var zero T
	a.evicted += int64(a.len) * int64(unsafe.Sizeof(zero))
	for i := range a.buf[:a.len] {
		a.buf[i] = zero
	}
	a.len = 0
}

// Usage returns the number of live elements currently allocated.
func (a *Arena[T]) Usage() int { return a.len }

// Peak returns the highest Usage ever observed, across Clear/Evict calls.
func (a *Arena[T]) Peak() int { return a.peak }

// Evicted returns the cumulative number of bytes reclaimed by Evict and
// Clear over the arena's lifetime.
func (a *Arena[T]) Evicted() int64 { return a.evicted }

// Capacity returns the arena's fixed element capacity.
func (a *Arena[T]) Capacity() int { return len(a.buf) }
