package colligo_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowscan/colligo"
)

// a source that squares integers with a configurable fake delay, counting
// every dispatch and recording the key set each one received
type SquareMockSource struct {
	fakeDelay time.Duration
	fetches   int64
	mu        sync.Mutex
	batches   [][]int
}

func (s *SquareMockSource) Identifier() string { return "SquareMockSource" }

func (s *SquareMockSource) FetchByKeys(ctx context.Context, keys []int) (map[int]int, error) {
	s.record(keys)
	time.Sleep(s.fakeDelay)
	result := make(map[int]int, len(keys))
	for _, key := range keys {
		result[key] = key * key
	}
	return result, nil
}

func (s *SquareMockSource) record(keys []int) {
	atomic.AddInt64(&s.fetches, 1)
	s.mu.Lock()
	s.batches = append(s.batches, append([]int(nil), keys...))
	s.mu.Unlock()
}

func (s *SquareMockSource) Fetches() int64 { return atomic.LoadInt64(&s.fetches) }

func (s *SquareMockSource) Batches() [][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]int(nil), s.batches...)
}

// a source over a small fixed dataset, ids without an entry are absent
type NameMockSource struct {
	fakeDelay time.Duration
	data      map[int]string
	fetches   int64
	mu        sync.Mutex
	batches   [][]int
}

func (s *NameMockSource) Identifier() string { return "NameMockSource" }

func (s *NameMockSource) FetchByKeys(ctx context.Context, keys []int) (map[int]string, error) {
	s.record(keys)
	time.Sleep(s.fakeDelay)
	result := make(map[int]string, len(keys))
	for _, key := range keys {
		if name, ok := s.data[key]; ok {
			result[key] = name
		}
	}
	return result, nil
}

func (s *NameMockSource) record(keys []int) {
	atomic.AddInt64(&s.fetches, 1)
	s.mu.Lock()
	s.batches = append(s.batches, append([]int(nil), keys...))
	s.mu.Unlock()
}

func (s *NameMockSource) Fetches() int64 { return atomic.LoadInt64(&s.fetches) }

func (s *NameMockSource) Batches() [][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]int(nil), s.batches...)
}

// a source that fails every dispatch with the same underlying cause
type FailingMockSource struct {
	fakeDelay time.Duration
	cause     error
	fetches   int64
}

func (s *FailingMockSource) Identifier() string { return "FailingMockSource" }

func (s *FailingMockSource) FetchByKeys(ctx context.Context, keys []int) (map[int]string, error) {
	atomic.AddInt64(&s.fetches, 1)
	time.Sleep(s.fakeDelay)
	return nil, s.cause
}

func (s *FailingMockSource) Fetches() int64 { return atomic.LoadInt64(&s.fetches) }

// create a simple int -> int loader over the squaring source
func newSquareLoader(t *testing.T, fakeDelay time.Duration, wait time.Duration, maxBatch int) (*colligo.Loader[int, int], *SquareMockSource) {
	source := &SquareMockSource{fakeDelay: fakeDelay}
	loader, err := colligo.New(colligo.Config[int, int]{
		Source:   source,
		Wait:     wait,
		MaxBatch: maxBatch,
	})
	if err != nil {
		t.Fatalf("failed to create square loader: %v", err)
	}
	return loader, source
}

// create an int -> string loader over the exercise catalog rows, id 4 and up
// have no row
func newExerciseLoader(t *testing.T, fakeDelay time.Duration, wait time.Duration) (*colligo.Loader[int, string], *NameMockSource) {
	source := &NameMockSource{
		fakeDelay: fakeDelay,
		data:      map[int]string{1: "Squat", 2: "Deadlift", 3: "Row"},
	}
	loader, err := colligo.New(colligo.Config[int, string]{
		Source: source,
		Wait:   wait,
	})
	if err != nil {
		t.Fatalf("failed to create exercise loader: %v", err)
	}
	return loader, source
}
