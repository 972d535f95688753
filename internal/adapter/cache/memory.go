// Package cache implements the invalidation side of the query cache:
// reactors hand over tags, and stale entries disappear either from the
// in-process generation table or from the shared Redis cache.
package cache

import (
	"context"
	"sync"
)

// Memory is the in-process invalidator. Each tag carries a generation
// counter; readers compare generations to decide whether their cached
// query is still fresh. Used standalone in tests and as the fallback
// when no Redis is configured.
type Memory struct {
	mu  sync.RWMutex
	gen map[string]uint64
}

func NewMemory() *Memory {
	return &Memory{gen: make(map[string]uint64)}
}

// Invalidate bumps the generation of every tag. It never fails.
func (m *Memory) Invalidate(_ context.Context, tags ...string) error {
	m.mu.Lock()
	for _, tag := range tags {
		m.gen[tag]++
	}
	m.mu.Unlock()
	return nil
}

// Generation returns the current generation for a tag. A tag never
// invalidated is generation zero.
func (m *Memory) Generation(tag string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen[tag]
}
