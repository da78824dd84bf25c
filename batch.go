package colligo

import (
	"context"
	"sync/atomic"
	"time"
)

// a batch of distinct keys collected during one window. keys are gathered
// until the window timer fires or the distinct-key cap is hit, then the whole
// set is sent to the source in one round-trip and out to the waiters
type batch[TKey comparable, TValue any] struct {
	keys    []TKey
	result  map[TKey]TValue
	err     error
	closing bool
	done    chan struct{}

	// waiters registered while the batch was collecting, only written under
	// the loader mutex
	registered int64

	// waiters that gave up before the batch settled, updated atomically
	abandoned int64
}

// addKey records the key into the batch unless it is already collected.
// The first key starts the window timer, hitting the distinct-key cap closes
// the batch immediately. Must be called with the loader mutex held
func (b *batch[TKey, TValue]) addKey(l *Loader[TKey, TValue], key TKey) {
	for _, existingKey := range b.keys {
		if key == existingKey {
			return
		}
	}

	b.keys = append(b.keys, key)
	if len(b.keys) == 1 {
		go b.startTimer(l)
	}

	if l.maxBatch != 0 && len(b.keys) >= l.maxBatch {
		if !b.closing {
			b.closing = true
			l.batch = nil
			go b.dispatch(l)
		}
	}
}

func (b *batch[TKey, TValue]) startTimer(l *Loader[TKey, TValue]) {
	time.Sleep(l.wait)
	l.mu.Lock()

	// we must have hit the batch cap and are already dispatching
	if b.closing {
		l.mu.Unlock()
		return
	}

	l.batch = nil
	l.mu.Unlock()

	b.dispatch(l)
}

// dispatch sends the collected key set to the source and settles the batch.
// The fetch runs on a background context, one caller giving up must not
// cancel a round-trip other callers are still waiting on
func (b *batch[TKey, TValue]) dispatch(l *Loader[TKey, TValue]) {
	defer close(b.done)

	// every waiter gave up during the window, skip the round-trip
	if atomic.LoadInt64(&b.abandoned) >= b.registered {
		return
	}

	traceID := l.getTraceID()
	for _, hook := range l.preDispatchHooks {
		hook.PreDispatchHook(traceID, b.keys)
	}

	result, err := l.source.FetchByKeys(context.Background(), b.keys)
	if err != nil {
		b.err = NewStoreError(l.identifier, b.keys, err)
	} else {
		b.result = result
	}

	for _, hook := range l.postDispatchHooks {
		hook.PostDispatchHook(traceID, b.keys, b.result, b.err)
	}
}
