package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	jti       string
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[uuid.UUID]memoryEntry
}

// NewMemoryCache создаёт указатели ротации в памяти процесса.
// Подходит для одного экземпляра сервиса; now == nil означает time.Now.
func NewMemoryCache(now func() time.Time) RotationCache {
	if now == nil {
		now = time.Now
	}

	return &memoryCache{now: now, entries: make(map[uuid.UUID]memoryEntry)}
}

func (c *memoryCache) Remember(_ context.Context, accountID uuid.UUID, jti string, ttl time.Duration) error {
	if jti == "" {
		return fmt.Errorf("cache.memory.Remember: %w", ErrEmptyID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[accountID] = memoryEntry{jti: jti, expiresAt: c.now().Add(ttl)}

	return nil
}

func (c *memoryCache) Rotate(_ context.Context, accountID uuid.UUID, expected, next string, ttl time.Duration) (bool, error) {
	if expected == "" || next == "" {
		return false, fmt.Errorf("cache.memory.Rotate: %w", ErrEmptyID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	cur, ok := c.entries[accountID]
	if !ok {
		return false, nil
	}

	if !now.Before(cur.expiresAt) {
		delete(c.entries, accountID)
		return false, nil
	}

	if cur.jti != expected {
		return false, nil
	}

	c.entries[accountID] = memoryEntry{jti: next, expiresAt: now.Add(ttl)}

	return true, nil
}

func (c *memoryCache) Close() error { return nil }
