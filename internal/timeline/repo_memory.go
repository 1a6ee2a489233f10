package timeline

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory Repository for tests and the local
// simulator. Sequence assignment matches the MongoDB repository: per-call,
// starting at 1, no gaps.
type MemoryRepository struct {
	mu       sync.Mutex
	byCall   map[string][]Event
	counters map[string]int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byCall:   make(map[string][]Event),
		counters: make(map[string]int64),
	}
}

func (r *MemoryRepository) Append(ctx context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters[event.CallID]++
	event.Seq = r.counters[event.CallID]
	r.byCall[event.CallID] = append(r.byCall[event.CallID], *event)
	return nil
}

func (r *MemoryRepository) ListByCall(ctx context.Context, callID string) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]Event, len(r.byCall[callID]))
	copy(events, r.byCall[callID])
	return events, nil
}
