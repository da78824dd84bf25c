package colligo

import "fmt"

// Indicates that a batched fetch against the backing store failed. Every
// request collected into the failed batch receives the same instance, so a
// single store failure surfaces once per batch no matter how many callers
// were waiting on it
type StoreError[TKey any] struct {
	source string
	keys   []TKey
	cause  error
}

func (e *StoreError[TKey]) Error() string {
	return fmt.Sprintf("store fetch on '%v' failed for %v keys: %v", e.source, len(e.keys), e.cause)
}

func (e *StoreError[TKey]) Unwrap() error {
	return e.cause
}

// Keys of the batch whose dispatch failed
func (e *StoreError[TKey]) Keys() []TKey {
	return e.keys
}

func NewStoreError[TKey any](source string, keys []TKey, cause error) *StoreError[TKey] {
	return &StoreError[TKey]{
		source: source,
		keys:   keys,
		cause:  cause,
	}
}
