package audit

import (
	"context"
	"sync"
)

// MemoryPublisher buffers events in memory. It backs tests and deployments
// without a configured audit sink. When full, the oldest events are dropped
// to make room for new ones.
type MemoryPublisher struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	dropped  int64
}

// NewMemoryPublisher creates a bounded in-memory publisher.
func NewMemoryPublisher(capacity int) *MemoryPublisher {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryPublisher{capacity: capacity}
}

// Emit appends the event, dropping the oldest when at capacity.
func (p *MemoryPublisher) Emit(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.events) >= p.capacity {
		p.events = p.events[1:]
		p.dropped++
	}
	p.events = append(p.events, event)
	return nil
}

// Events returns a snapshot of buffered events.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Dropped returns how many events were discarded due to capacity.
func (p *MemoryPublisher) Dropped() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}
