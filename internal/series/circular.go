// Package series provides the fixed-capacity columnar storage the engine
// keeps its bar window and indicator outputs in.
package series

import "fmt"

// CircularColumn is a fixed-capacity ring buffer: append-only, overwriting
// the oldest element once full. The most recent element can be revised in
// place. Callers only get read access via Get/GetFromEnd/ToSlice.
type CircularColumn[T any] struct {
	capacity int
	length   int
	head     int // next write index
	data     []T
}

// NewCircularColumn creates a column with the given fixed capacity.
// A non-positive capacity is a programmer error.
func NewCircularColumn[T any](capacity int) *CircularColumn[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("series: capacity must be > 0, got %d", capacity))
	}

	return &CircularColumn[T]{
		capacity: capacity,
		data:     make([]T, capacity),
	}
}

// Capacity returns the fixed capacity.
func (c *CircularColumn[T]) Capacity() int {
	return c.capacity
}

// Len returns the current fill.
func (c *CircularColumn[T]) Len() int {
	return c.length
}

// IsEmpty reports whether no elements have been pushed yet.
func (c *CircularColumn[T]) IsEmpty() bool {
	return c.length == 0
}

// IsFull reports whether the next push will evict the oldest element.
func (c *CircularColumn[T]) IsFull() bool {
	return c.length == c.capacity
}

// start returns the index (in data) of the oldest element.
// Works for both partially-filled and full rings.
func (c *CircularColumn[T]) start() int {
	return (c.head + c.capacity - c.length) % c.capacity
}

func (c *CircularColumn[T]) idxFromOldest(i int) int {
	return (c.start() + i) % c.capacity
}

// Push appends a new element, overwriting the oldest when full.
func (c *CircularColumn[T]) Push(v T) {
	c.data[c.head] = v
	c.head = (c.head + 1) % c.capacity
	if c.length < c.capacity {
		c.length++
	}
}

// UpdateLast replaces the most recent element. No-op on an empty column.
func (c *CircularColumn[T]) UpdateLast(v T) {
	if c.length == 0 {
		return
	}

	lastIdx := (c.head + c.capacity - 1) % c.capacity
	c.data[lastIdx] = v
}

// Get returns the element at logical index i (0 = oldest).
func (c *CircularColumn[T]) Get(i int) (T, bool) {
	var zero T
	if i < 0 || i >= c.length {
		return zero, false
	}

	return c.data[c.idxFromOldest(i)], true
}

// GetFromEnd returns the element at index i counted from the newest
// element (0 = newest).
func (c *CircularColumn[T]) GetFromEnd(i int) (T, bool) {
	if i < 0 || i >= c.length {
		var zero T
		return zero, false
	}

	return c.Get(c.length - 1 - i)
}

// ToSlice copies the valid window into a new slice in chronological order.
func (c *CircularColumn[T]) ToSlice() []T {
	out := make([]T, 0, c.length)
	for i := 0; i < c.length; i++ {
		v, _ := c.Get(i)
		out = append(out, v)
	}

	return out
}

// RawParts exposes the backing storage plus ring metadata. Data order is NOT
// chronological when wrapped; use head/len/capacity to reconstruct order, or
// call ToSlice (copying). The returned slice must be treated as read-only.
func (c *CircularColumn[T]) RawParts() (data []T, capacity, length, head int) {
	return c.data, c.capacity, c.length, c.head
}
