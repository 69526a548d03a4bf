package queue

import (
	"sync"
)

// Bounded is a thread-safe FIFO ring buffer with a fixed capacity.
// Enqueue never blocks: at capacity the new item is rejected.
type Bounded[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Stats
	totalAccepted int64
	totalRejected int64
	totalDrained  int64
}

// NewBounded creates a buffer with the given fixed capacity.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded[T]{
		buf:      make([]T, capacity),
		capacity: capacity,
	}
}

// TryEnqueue appends an item in FIFO order. Returns false without blocking
// if the buffer is at capacity or closed.
func (b *Bounded[T]) TryEnqueue(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.count == b.capacity {
		b.totalRejected++
		return false
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalAccepted++
	return true
}

// DrainUpTo removes and returns at most max items in FIFO order.
// Returns nil when the buffer is empty. A non-positive max drains everything.
func (b *Bounded[T]) DrainUpTo(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = b.buf[b.head]
		var zero T
		b.buf[b.head] = zero // Clear reference for GC
		b.head = (b.head + 1) % b.capacity
		b.count--
		b.totalDrained++
	}

	return result
}

// Depth returns the current number of buffered items.
func (b *Bounded[T]) Depth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the fixed capacity.
func (b *Bounded[T]) Cap() int {
	return b.capacity
}

// Close marks the buffer closed. Subsequent TryEnqueue calls are rejected;
// buffered items remain drainable.
func (b *Bounded[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Stats returns a snapshot of buffer counters.
func (b *Bounded[T]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Depth:         b.count,
		Capacity:      b.capacity,
		TotalAccepted: b.totalAccepted,
		TotalRejected: b.totalRejected,
		TotalDrained:  b.totalDrained,
	}
}

// Stats contains buffer counters.
type Stats struct {
	Depth         int
	Capacity      int
	TotalAccepted int64
	TotalRejected int64
	TotalDrained  int64
}
