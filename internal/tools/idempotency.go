package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "toolidem:"
	idempotencyTTL    = 24 * time.Hour
)

// IdempotencyStore remembers the exact serialized envelope of a completed
// side-effecting tool call, keyed by the client's idempotency key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, raw []byte) error
}

// cacheKey scopes an idempotency key to its tenant and tool so reuse across
// tools cannot replay the wrong envelope.
func cacheKey(tenantID, tool, idempotencyKey string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", tenantID, tool, idempotencyKey)))
	return idempotencyPrefix + hex.EncodeToString(sum[:])
}

// RedisIdempotencyStore keeps replay envelopes in Redis with a 24h TTL.
type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	return raw, true, nil
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, raw []byte) error {
	if err := s.client.Set(ctx, key, raw, idempotencyTTL).Err(); err != nil {
		return fmt.Errorf("idempotency store failed: %w", err)
	}
	return nil
}

// MemoryIdempotencyStore is the in-process store for tests and the local
// simulator.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{entries: make(map[string][]byte)}
}

func (s *MemoryIdempotencyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return cp, true, nil
}

func (s *MemoryIdempotencyStore) Set(ctx context.Context, key string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(raw))
	copy(cp, raw)
	s.entries[key] = cp
	return nil
}
