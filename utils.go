package colligo

import (
	"context"
	"sync"
)

// Handler is any function that resolves a single key, reporting whether the
// store holds it
type Handler[TKey comparable, TValue any] func(ctx context.Context, key TKey) (TValue, bool, error)

// Convert a per-key handler into a batch fetch function, each key of a batch
// will be resolved in parallel. Useful for stores with no native batch
// operation, the loader still collapses duplicate lookups in front of it.
// The first handler error fails the whole batch
func Batchify[TKey comparable, TValue any](f Handler[TKey, TValue]) FetchFunc[TKey, TValue] {
	return func(ctx context.Context, keys []TKey) (map[TKey]TValue, error) {
		result := make(map[TKey]TValue, len(keys))
		var firstErr error
		mu := sync.Mutex{}
		wg := sync.WaitGroup{}
		for _, key := range keys {
			wg.Add(1)
			capturedKey := key
			go func() {
				defer wg.Done()
				value, found, err := f(ctx, capturedKey)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return
				}
				if found {
					result[capturedKey] = value
				}
			}()
		}
		wg.Wait()
		if firstErr != nil {
			return nil, firstErr
		}
		return result, nil
	}
}

// Return the zero value of the given generic type
func zero[T any]() T {
	var zero T
	return zero
}
