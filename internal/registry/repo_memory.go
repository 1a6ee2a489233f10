package registry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository used by tests and the local
// simulator. It enforces the same sid uniqueness as the MongoDB repository.
type MemoryRepository struct {
	mu    sync.Mutex
	byID  map[string]*Call
	bySID map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[string]*Call),
		bySID: make(map[string]string),
	}
}

func (r *MemoryRepository) Insert(ctx context.Context, call *Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySID[call.ProviderCallSID]; exists {
		return ErrDuplicateSID
	}
	cp := *call
	r.byID[call.ID] = &cp
	r.bySID[call.ProviderCallSID] = call.ID
	return nil
}

func (r *MemoryRepository) FindBySID(ctx context.Context, providerCallSID string) (*Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.bySID[providerCallSID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *call
	return &cp, nil
}

func (r *MemoryRepository) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Call, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]Call, 0, len(r.byID))
	for _, c := range r.byID {
		if filter.TenantID != "" && c.TenantID != filter.TenantID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].StartedAt.After(all[j].StartedAt)
	})

	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []Call{}, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *MemoryRepository) MarkCompleted(ctx context.Context, id string, endedAt time.Time, durationSec int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	call.Status = StatusCompleted
	call.EndedAt = &endedAt
	call.DurationSec = durationSec
	return nil
}
