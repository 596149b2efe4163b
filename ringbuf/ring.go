// Copyright (c) 2025 BVK Chaitanya

// Package ringbuf implements a fixed-capacity, insertion-ordered container that
// evicts the oldest element when it is full.
package ringbuf

import (
	"fmt"
	"os"
)

type Ring[T any] struct {
	buf []T

	// start is the index of the oldest element and count is the number of
	// valid elements starting at start (modulo capacity).
	start int
	count int
}

// New creates an empty ring with the given capacity, which must be at least
// one.
func New[T any](capacity int) (*Ring[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("ring capacity %d must be positive: %w", capacity, os.ErrInvalid)
	}
	return &Ring[T]{buf: make([]T, capacity)}, nil
}

// Append adds an item as the newest element. When the ring is full the oldest
// element is overwritten.
func (r *Ring[T]) Append(item T) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = item
		r.count++
		return
	}
	r.buf[r.start] = item
	r.start = (r.start + 1) % len(r.buf)
}

// Snapshot returns a copy of the current contents, oldest first. Returned
// slice is never modified by the ring.
func (r *Ring[T]) Snapshot() []T {
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Last returns the newest element.
func (r *Ring[T]) Last() (v T, ok bool) {
	if r.count == 0 {
		return v, false
	}
	return r.buf[(r.start+r.count-1)%len(r.buf)], true
}

func (r *Ring[T]) Len() int {
	return r.count
}

func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Reset drops all elements without releasing the backing storage.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.start, r.count = 0, 0
}
