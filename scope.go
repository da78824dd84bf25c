package colligo

import (
	"context"
	"sync"
)

// a settled or in-flight outcome for one key of a scope
type scopeEntry[TValue any] struct {
	value TValue
	found bool
	err   error
	done  chan struct{} // closed once the fields above are settled
}

// Scope is a per-request cache in front of a loader. The first lookup for a
// key goes through the loader, every later lookup for that key in the same
// scope returns the settled outcome without another round-trip, errors
// included. Entries are written once and never evicted, the whole scope is
// meant to be discarded together with the request that owns it
type Scope[TKey comparable, TValue any] struct {
	loader  *Loader[TKey, TValue]
	id      uint64
	entries map[TKey]*scopeEntry[TValue]
	settled int
	mu      sync.Mutex
}

// NewScope creates an empty cache bound to this loader for one logical
// request. Scopes are cheap and must not be shared between requests
func (l *Loader[TKey, TValue]) NewScope() *Scope[TKey, TValue] {
	return &Scope[TKey, TValue]{
		loader:  l,
		id:      l.getTraceID(),
		entries: make(map[TKey]*scopeEntry[TValue]),
	}
}

// Load an entity by key through the scope cache. The second return reports
// whether the store holds the key, a missing key is not an error and the
// miss is cached like any other outcome
func (s *Scope[TKey, TValue]) Load(ctx context.Context, key TKey) (TValue, bool, error) {
	return s.wait(ctx, s.lookup(key))
}

// LoadMany fetches many keys at once through the scope cache. All keys are
// registered before any waiting happens so the uncached ones land in the same
// collection window. The first failed batch fails the whole call
func (s *Scope[TKey, TValue]) LoadMany(ctx context.Context, keys []TKey) (map[TKey]TValue, error) {
	entries := make([]*scopeEntry[TValue], len(keys))
	for i, key := range keys {
		entries[i] = s.lookup(key)
	}

	result := make(map[TKey]TValue, len(keys))
	for i, entry := range entries {
		value, found, err := s.wait(ctx, entry)
		if err != nil {
			return nil, err
		}
		if found {
			result[keys[i]] = value
		}
	}
	return result, nil
}

// Prime the scope with an already known entity. The first write for a key
// wins, priming a key that is settled or in flight reports false and changes
// nothing
func (s *Scope[TKey, TValue]) Prime(key TKey, value TValue) bool {
	s.mu.Lock()
	if _, ok := s.entries[key]; ok {
		s.mu.Unlock()
		return false
	}
	entry := &scopeEntry[TValue]{value: value, found: true, done: make(chan struct{})}
	close(entry.done)
	s.entries[key] = entry
	s.settled++
	s.mu.Unlock()
	return true
}

// Len reports how many keys have a settled outcome in this scope
func (s *Scope[TKey, TValue]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

// look up the entry for a key, registering a new in-flight entry backed by a
// loader thunk when the key was never requested in this scope before
func (s *Scope[TKey, TValue]) lookup(key TKey) *scopeEntry[TValue] {
	s.mu.Lock()
	if entry, ok := s.entries[key]; ok {
		s.mu.Unlock()
		s.notifyLookup(key, true)
		return entry
	}
	entry := &scopeEntry[TValue]{done: make(chan struct{})}
	s.entries[key] = entry
	s.mu.Unlock()
	s.notifyLookup(key, false)

	// the entry settles from the batch even when the caller that registered
	// it gives up waiting, later same-scope callers still need the outcome
	thunk := s.loader.LoadThunk(context.Background(), key)
	go func() {
		value, found, err := thunk()
		entry.value = value
		entry.found = found
		entry.err = err
		s.mu.Lock()
		s.settled++
		s.mu.Unlock()
		close(entry.done)
	}()
	return entry
}

func (s *Scope[TKey, TValue]) wait(ctx context.Context, entry *scopeEntry[TValue]) (TValue, bool, error) {
	// a settled entry answers even when the context is already done
	select {
	case <-entry.done:
		return entry.value, entry.found, entry.err
	default:
	}

	select {
	case <-entry.done:
		return entry.value, entry.found, entry.err
	case <-ctx.Done():
		return zero[TValue](), false, ctx.Err()
	}
}

func (s *Scope[TKey, TValue]) notifyLookup(key TKey, hit bool) {
	for _, hook := range s.loader.scopeLookupHooks {
		hook.ScopeLookupHook(s.id, key, hit)
	}
}
