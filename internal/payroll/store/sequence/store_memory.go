// Package sequence provides the per-year payment reference counters. The
// allocator is the engine's one serialization point: Next must never hand
// the same number to two callers, however concurrent. Allocated numbers
// that go unused burn; references must be unique, not dense.
package sequence

import (
	"context"
	"sync"
)

// InMemoryAllocator counts in process memory for tests/dev.
type InMemoryAllocator struct {
	mu   sync.Mutex
	next map[int]int64
}

// NewInMemoryAllocator constructs an empty in-memory allocator.
func NewInMemoryAllocator() *InMemoryAllocator {
	return &InMemoryAllocator{next: make(map[int]int64)}
}

// Next returns the next sequence number for the year, starting at 1.
func (a *InMemoryAllocator) Next(_ context.Context, year int) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next[year]++
	return a.next[year], nil
}

// Peek reports the highest number allocated for a year without moving
// the counter. Test helper.
func (a *InMemoryAllocator) Peek(year int) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next[year]
}
