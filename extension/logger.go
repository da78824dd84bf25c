package extension

import (
	"sync"
	"time"

	"github.com/flowscan/colligo"
	"github.com/rs/zerolog/log"
)

// Logger is an extension for colligo that logs batch dispatches and scope
// cache activity for debugging
type Logger[TKey comparable, TValue any] struct {
	identifier      string
	dispatchStartAt map[uint64]time.Time
	mu              sync.Mutex
}

func (e *Logger[TKey, TValue]) Name() string { return "Logger" }

func (e *Logger[TKey, TValue]) InitializationHook(loader *colligo.Loader[TKey, TValue]) error {
	e.identifier = loader.Identifier()
	e.dispatchStartAt = make(map[uint64]time.Time)
	log.Debug().Str("loader", e.identifier).Msgf("loader initialized")
	return nil
}

func (e *Logger[TKey, TValue]) PreDispatchHook(traceID uint64, keys []TKey) {
	e.mu.Lock()
	e.dispatchStartAt[traceID] = time.Now()
	e.mu.Unlock()
	log.Debug().Str("loader", e.identifier).Uint64("trace", traceID).Msgf("dispatch start: %v", keys)
}

func (e *Logger[TKey, TValue]) PostDispatchHook(traceID uint64, keys []TKey, result map[TKey]TValue, err error) {
	e.mu.Lock()
	startAt := e.dispatchStartAt[traceID]
	delete(e.dispatchStartAt, traceID)
	e.mu.Unlock()
	log.Debug().Str("loader", e.identifier).Uint64("trace", traceID).Msgf(
		"dispatch finish: %v keys, %v found (err: %v) time: %v",
		len(keys),
		len(result),
		err,
		time.Since(startAt).Milliseconds(),
	)
}

func (e *Logger[TKey, TValue]) ScopeLookupHook(scopeID uint64, key TKey, hit bool) {
	log.Debug().Str("loader", e.identifier).Uint64("scope", scopeID).Bool("hit", hit).Msgf("scope lookup: %v", key)
}
