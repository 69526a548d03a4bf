package queue

import (
	"sync"
	"testing"
)

func TestBounded_BasicEnqueueDrain(t *testing.T) {
	buf := NewBounded[int](10)

	for i := 0; i < 5; i++ {
		if !buf.TryEnqueue(i) {
			t.Fatalf("TryEnqueue(%d) returned false", i)
		}
	}

	if buf.Depth() != 5 {
		t.Errorf("Depth() = %d, want 5", buf.Depth())
	}

	items := buf.DrainUpTo(5)
	if len(items) != 5 {
		t.Fatalf("DrainUpTo(5) returned %d items, want 5", len(items))
	}
	for i, val := range items {
		if val != i {
			t.Errorf("items[%d] = %d, want %d", i, val, i)
		}
	}

	if buf.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", buf.Depth())
	}
}

func TestBounded_RejectsAtCapacity(t *testing.T) {
	buf := NewBounded[string](5)

	for i := 0; i < 5; i++ {
		if !buf.TryEnqueue("ITSA3") {
			t.Fatalf("TryEnqueue #%d rejected below capacity", i)
		}
	}

	// 6th enqueue must be rejected without blocking, depth capped.
	if buf.TryEnqueue("ITSA3") {
		t.Error("TryEnqueue at capacity returned true, want rejection")
	}
	if buf.Depth() != 5 {
		t.Errorf("Depth() = %d, want 5", buf.Depth())
	}

	stats := buf.Stats()
	if stats.TotalAccepted != 5 {
		t.Errorf("TotalAccepted = %d, want 5", stats.TotalAccepted)
	}
	if stats.TotalRejected != 1 {
		t.Errorf("TotalRejected = %d, want 1", stats.TotalRejected)
	}

	// Draining frees room again.
	buf.DrainUpTo(1)
	if !buf.TryEnqueue("ITSA3") {
		t.Error("TryEnqueue after drain rejected, want accepted")
	}
}

func TestBounded_FIFOAcrossWrapAround(t *testing.T) {
	buf := NewBounded[int](5)

	buf.TryEnqueue(1)
	buf.TryEnqueue(2)
	buf.TryEnqueue(3)
	buf.DrainUpTo(2) // removes 1, 2

	// These wrap around the ring.
	buf.TryEnqueue(4)
	buf.TryEnqueue(5)
	buf.TryEnqueue(6)
	buf.TryEnqueue(7)

	expected := []int{3, 4, 5, 6, 7}
	items := buf.DrainUpTo(0)
	if len(items) != len(expected) {
		t.Fatalf("drained %d items, want %d", len(items), len(expected))
	}
	for i, want := range expected {
		if items[i] != want {
			t.Errorf("items[%d] = %d, want %d", i, items[i], want)
		}
	}
}

func TestBounded_DrainUpTo_Limits(t *testing.T) {
	buf := NewBounded[int](10)
	for i := 0; i < 8; i++ {
		buf.TryEnqueue(i)
	}

	if items := buf.DrainUpTo(3); len(items) != 3 {
		t.Errorf("DrainUpTo(3) returned %d items, want 3", len(items))
	}
	if items := buf.DrainUpTo(100); len(items) != 5 {
		t.Errorf("DrainUpTo(100) returned %d items, want 5", len(items))
	}
	if items := buf.DrainUpTo(1); items != nil {
		t.Errorf("DrainUpTo on empty buffer = %v, want nil", items)
	}
}

func TestBounded_Close(t *testing.T) {
	buf := NewBounded[int](5)
	buf.TryEnqueue(1)
	buf.Close()

	if buf.TryEnqueue(2) {
		t.Error("TryEnqueue after Close returned true")
	}
	// Buffered items remain drainable after close.
	if items := buf.DrainUpTo(0); len(items) != 1 || items[0] != 1 {
		t.Errorf("DrainUpTo after Close = %v, want [1]", items)
	}
}

func TestBounded_MinimumCapacity(t *testing.T) {
	buf := NewBounded[int](0)
	if buf.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", buf.Cap())
	}
}

func TestBounded_ConcurrentEnqueue(t *testing.T) {
	const producers = 8
	const perProducer = 500
	buf := NewBounded[int](producers * perProducer)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if !buf.TryEnqueue(base + i) {
					t.Errorf("TryEnqueue rejected below capacity")
					return
				}
			}
		}(p * perProducer)
	}
	wg.Wait()

	items := buf.DrainUpTo(0)
	if len(items) != producers*perProducer {
		t.Fatalf("drained %d items, want %d", len(items), producers*perProducer)
	}

	// Every item present exactly once; relative order within a producer
	// is preserved but cross-producer order is not asserted.
	seen := make(map[int]bool, len(items))
	for _, val := range items {
		if seen[val] {
			t.Errorf("item %d drained twice", val)
		}
		seen[val] = true
	}
	for i := 0; i < producers*perProducer; i++ {
		if !seen[i] {
			t.Errorf("missing item %d", i)
		}
	}
}

func TestBounded_ConcurrentEnqueueAndDrain(t *testing.T) {
	buf := NewBounded[int](64)
	const total = 5000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			// Spin until accepted; the drainer keeps making room.
			for !buf.TryEnqueue(i) {
			}
		}
	}()

	var drained []int
	wg.Add(1)
	go func() {
		defer wg.Done()
		for len(drained) < total {
			drained = append(drained, buf.DrainUpTo(16)...)
		}
	}()
	wg.Wait()

	// Single producer, single drainer: strict FIFO end to end.
	for i, val := range drained {
		if val != i {
			t.Fatalf("drained[%d] = %d, want %d", i, val, i)
		}
	}
}
