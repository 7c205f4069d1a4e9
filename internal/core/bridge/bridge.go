// Package bridge hands out opaque tokens for values that must outlive the
// caller's own reference while a native source still holds the token.
//
// A Table keeps every opened value reachable until its reference count drops
// to zero. Sources only ever see a ports.Context; callbacks recover the value
// with Lookup, which never changes ownership.
package bridge

import (
	"sync"
	"sync/atomic"

	"pathwatch/internal/core/ports"
)

type cell[T any] struct {
	value T
	refs  atomic.Int64
}

// Table maps opaque tokens to reference-counted values.
type Table[T any] struct {
	next   atomic.Uintptr
	cells  sync.Map
	live   atomic.Int64
	onFree func(T)
}

// NewTable creates an empty table. onFree, when non-nil, runs exactly once
// per opened value after its last reference is released.
func NewTable[T any](onFree func(T)) *Table[T] {
	return &Table[T]{onFree: onFree}
}

// Open stores v with a single reference held by the caller and returns its
// token. Tokens are never zero and never reused within a table.
func (t *Table[T]) Open(v T) ports.Context {
	c := &cell[T]{value: v}
	c.refs.Store(1)
	token := ports.Context(t.next.Add(1))
	t.cells.Store(token, c)
	t.live.Add(1)
	return token
}

// Retain adds a reference. It fails for tokens that were never opened or
// whose count already reached zero.
func (t *Table[T]) Retain(token ports.Context) bool {
	c, ok := t.load(token)
	if !ok {
		return false
	}
	for {
		n := c.refs.Load()
		if n <= 0 {
			return false
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference and frees the value when it was the last one.
// Releasing an unknown or already freed token reports false and changes
// nothing.
func (t *Table[T]) Release(token ports.Context) bool {
	c, ok := t.load(token)
	if !ok {
		return false
	}
	for {
		n := c.refs.Load()
		if n <= 0 {
			return false
		}
		if !c.refs.CompareAndSwap(n, n-1) {
			continue
		}
		if n == 1 {
			t.cells.Delete(token)
			t.live.Add(-1)
			if t.onFree != nil {
				t.onFree(c.value)
			}
		}
		return true
	}
}

// Lookup recovers the value behind token without taking a reference.
func (t *Table[T]) Lookup(token ports.Context) (T, bool) {
	c, ok := t.load(token)
	if !ok || c.refs.Load() <= 0 {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Refs reports the current reference count for token, zero when not live.
func (t *Table[T]) Refs(token ports.Context) int64 {
	c, ok := t.load(token)
	if !ok {
		return 0
	}
	return c.refs.Load()
}

// Len reports how many values are still live.
func (t *Table[T]) Len() int {
	return int(t.live.Load())
}

func (t *Table[T]) load(token ports.Context) (*cell[T], bool) {
	if token == 0 {
		return nil, false
	}
	v, ok := t.cells.Load(token)
	if !ok {
		return nil, false
	}
	return v.(*cell[T]), true
}
