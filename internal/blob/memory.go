package blob

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process blob store for tests and single-node
// development mode.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores a copy of data under key.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

// Get returns a copy of the object at key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), data...), nil
}

// RangeGet returns an inclusive byte range of the object at key.
func (s *MemoryStore) RangeGet(_ context.Context, key string, startInclusive, endInclusive int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if startInclusive < 0 || endInclusive >= int64(len(data)) || startInclusive > endInclusive {
		return nil, fmt.Errorf("range [%d,%d] out of bounds for %s (%d bytes)",
			startInclusive, endInclusive, key, len(data))
	}
	return append([]byte(nil), data[startInclusive:endInclusive+1]...), nil
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
