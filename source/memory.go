package source

import (
	"context"
	"sync"
)

// Memory is a map-backed source, useful for fixtures, tests and small
// precomputed datasets that live in the process. It serves both keyed
// fetches and bulk listings
type Memory[TKey comparable, TValue any] struct {
	identifier string
	data       map[TKey]TValue
	mu         sync.RWMutex
}

// Create a new in-memory source seeded with the given data, the seed map is
// copied
func NewMemory[TKey comparable, TValue any](identifier string, seed map[TKey]TValue) *Memory[TKey, TValue] {
	s := &Memory[TKey, TValue]{
		identifier: identifier,
		data:       make(map[TKey]TValue, len(seed)),
	}
	for key, value := range seed {
		s.data[key] = value
	}
	return s
}

// Unique identifier for this source used for logging and metric purposes
func (s *Memory[TKey, TValue]) Identifier() string { return s.identifier }

// Fetch the entities held for the given keys
func (s *Memory[TKey, TValue]) FetchByKeys(ctx context.Context, keys []TKey) (map[TKey]TValue, error) {
	result := make(map[TKey]TValue, len(keys))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range keys {
		if value, ok := s.data[key]; ok {
			result[key] = value
		}
	}
	return result, nil
}

// Fetch every entity held by this source, in no particular order
func (s *Memory[TKey, TValue]) FetchAll(ctx context.Context) ([]TValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]TValue, 0, len(s.data))
	for _, value := range s.data {
		result = append(result, value)
	}
	return result, nil
}

// Put stores an entity under the given key
func (s *Memory[TKey, TValue]) Put(key TKey, value TValue) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}

// Remove deletes the entity under the given key
func (s *Memory[TKey, TValue]) Remove(key TKey) {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}
