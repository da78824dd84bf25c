package colligo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWait is the collection window length used when the configuration
// leaves Wait unset
const DefaultWait = 2 * time.Millisecond

// Configuration for a loader
type Config[TKey comparable, TValue any] struct {
	// Identifier for this loader, used by logging and metric hooks.
	// Defaults to the source identifier
	Identifier string

	// The backing store queried for the keys of every dispatched batch
	Source Source[TKey, TValue]

	// Wait is how long a batch keeps collecting keys before it is dispatched
	Wait time.Duration

	// MaxBatch will limit the number of distinct keys to collect into one
	// batch, 0 = no limit
	MaxBatch int

	// Array of extensions to be used
	Extensions []Extension
}

// Loader collects concurrent point-lookups into batches, dispatches each
// batch as one fetch against the source and fans the results back out to
// every caller, including the callers whose key turned out to be absent
type Loader[TKey comparable, TValue any] struct {
	identifier string
	source     Source[TKey, TValue]
	wait       time.Duration
	maxBatch   int

	// the current batch. keys will continue to be collected until the window
	// closes, then everything will be sent to the source and out to the
	// waiting thunks
	batch *batch[TKey, TValue]

	// mutex to prevent races
	mu sync.Mutex

	// trace counter for trace ID assignment
	traceCounter uint64

	// hooks
	initializationHooks []InitializationHookExtension[TKey, TValue]
	preDispatchHooks    []PreDispatchHookExtension[TKey]
	postDispatchHooks   []PostDispatchHookExtension[TKey, TValue]
	scopeLookupHooks    []ScopeLookupHookExtension[TKey]
}

// Create a new loader with the given configuration
func New[TKey comparable, TValue any](config Config[TKey, TValue]) (*Loader[TKey, TValue], error) {
	if config.Source == nil {
		return nil, errors.New("colligo: configuration has no source")
	}

	l := &Loader[TKey, TValue]{
		identifier: config.Identifier,
		source:     config.Source,
		wait:       config.Wait,
		maxBatch:   config.MaxBatch,
	}
	if l.identifier == "" {
		l.identifier = config.Source.Identifier()
	}
	if l.wait <= 0 {
		l.wait = DefaultWait
	}

	l.registerExtensions(config.Extensions)

	// Execute initialization hooks
	for _, hook := range l.initializationHooks {
		if err := hook.InitializationHook(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Identifier for this loader used for logging and metric purposes
func (l *Loader[TKey, TValue]) Identifier() string {
	return l.identifier
}

func (l *Loader[TKey, TValue]) getTraceID() uint64 {
	return atomic.AddUint64(&l.traceCounter, 1)
}

// Load an entity by key, the lookup is collected into the current batch and
// answered when the batch settles. The second return reports whether the
// store holds the key, a missing key is not an error. The context only bounds
// this caller's wait, the batched round-trip itself is shared and runs on
// until it settles
func (l *Loader[TKey, TValue]) Load(ctx context.Context, key TKey) (TValue, bool, error) {
	return l.LoadThunk(ctx, key)()
}

// LoadThunk enqueues the key into the current batch and returns a function
// that blocks until the batch has settled.
// This method should be used if you want one goroutine to enqueue keys on
// many different loaders without blocking until the thunks are called
func (l *Loader[TKey, TValue]) LoadThunk(ctx context.Context, key TKey) func() (TValue, bool, error) {
	l.mu.Lock()
	if l.batch == nil {
		l.batch = &batch[TKey, TValue]{done: make(chan struct{})}
	}
	b := l.batch
	b.registered++
	b.addKey(l, key)
	l.mu.Unlock()

	waiting := true
	gaveUp := false
	return func() (TValue, bool, error) {
		if waiting {
			// a settled batch answers even when the context is already done
			select {
			case <-b.done:
				waiting = false
			default:
			}
		}
		if waiting {
			select {
			case <-b.done:
				waiting = false
			case <-ctx.Done():
				waiting = false
				gaveUp = true
				atomic.AddInt64(&b.abandoned, 1)
			}
		}
		if gaveUp {
			return zero[TValue](), false, ctx.Err()
		}

		if b.err != nil {
			return zero[TValue](), false, b.err
		}
		value, ok := b.result[key]
		return value, ok, nil
	}
}

// LoadMany fetches many keys at once. Repeated keys collapse into one batch
// entry and keys missing from the store are simply missing from the returned
// map. The first failed batch fails the whole call
func (l *Loader[TKey, TValue]) LoadMany(ctx context.Context, keys []TKey) (map[TKey]TValue, error) {
	return l.LoadManyThunk(ctx, keys)()
}

// LoadManyThunk enqueues all keys and returns a function that blocks until
// every involved batch has settled.
// This method should be used if you want one goroutine to enqueue keys on
// many different loaders without blocking until the thunks are called
func (l *Loader[TKey, TValue]) LoadManyThunk(ctx context.Context, keys []TKey) func() (map[TKey]TValue, error) {
	thunks := make([]func() (TValue, bool, error), len(keys))
	for i, key := range keys {
		thunks[i] = l.LoadThunk(ctx, key)
	}

	return func() (map[TKey]TValue, error) {
		result := make(map[TKey]TValue, len(keys))
		for i, thunk := range thunks {
			value, ok, err := thunk()
			if err != nil {
				return nil, err
			}
			if ok {
				result[keys[i]] = value
			}
		}
		return result, nil
	}
}

func (l *Loader[TKey, TValue]) registerExtensions(extensions []Extension) {
	l.initializationHooks = make([]InitializationHookExtension[TKey, TValue], 0)
	l.preDispatchHooks = make([]PreDispatchHookExtension[TKey], 0)
	l.postDispatchHooks = make([]PostDispatchHookExtension[TKey, TValue], 0)
	l.scopeLookupHooks = make([]ScopeLookupHookExtension[TKey], 0)
	for _, ext := range extensions {
		if ext, ok := ext.(InitializationHookExtension[TKey, TValue]); ok {
			l.initializationHooks = append(l.initializationHooks, ext)
		}
		if ext, ok := ext.(PreDispatchHookExtension[TKey]); ok {
			l.preDispatchHooks = append(l.preDispatchHooks, ext)
		}
		if ext, ok := ext.(PostDispatchHookExtension[TKey, TValue]); ok {
			l.postDispatchHooks = append(l.postDispatchHooks, ext)
		}
		if ext, ok := ext.(ScopeLookupHookExtension[TKey]); ok {
			l.scopeLookupHooks = append(l.scopeLookupHooks, ext)
		}
	}
}
