package ops

import (
	"sync"

	audit "verity/pkg/platform/audit"
)

// ringBuffer is a bounded buffer that drops the oldest event when full.
type ringBuffer struct {
	mu       sync.Mutex
	events   []audit.Event
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int
	dropped  int64
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = 1024
	}
	return &ringBuffer{
		events:   make([]audit.Event, capacity),
		capacity: capacity,
	}
}

// enqueue adds an event and reports whether an older one was dropped.
func (b *ringBuffer) enqueue(event audit.Event) (dropped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
		dropped = true
	}
	b.events[b.head] = event
	b.head = (b.head + 1) % b.capacity
	b.count++
	return dropped
}

// dequeueBatch removes up to n events, oldest first.
func (b *ringBuffer) dequeueBatch(n int) []audit.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	n = min(n, b.count)
	out := make([]audit.Event, n)
	for i := range n {
		out[i] = b.events[b.tail]
		b.events[b.tail] = audit.Event{}
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return out
}

func (b *ringBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
