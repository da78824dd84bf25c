package source_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowscan/colligo/source"
	"github.com/stretchr/testify/assert"
)

// a counting pass-through over a fixed dataset
type countingSource struct {
	data    map[int]string
	fetched int64
}

func (s *countingSource) Identifier() string { return "counting" }

func (s *countingSource) FetchByKeys(ctx context.Context, keys []int) (map[int]string, error) {
	atomic.AddInt64(&s.fetched, int64(len(keys)))
	result := make(map[int]string, len(keys))
	for _, key := range keys {
		if value, ok := s.data[key]; ok {
			result[key] = value
		}
	}
	return result, nil
}

func TestCachedServesFromMemory(t *testing.T) {
	inner := &countingSource{data: map[int]string{1: "Squat", 2: "Deadlift"}}
	cached := source.NewCached[int, string](inner, source.CachedConfig{Retention: time.Hour})
	defer cached.Close()

	result, err := cached.FetchByKeys(context.Background(), []int{1, 2})
	assert.Nil(t, err)
	assert.Equal(t, map[int]string{1: "Squat", 2: "Deadlift"}, result)
	assert.EqualValues(t, 2, atomic.LoadInt64(&inner.fetched))

	// second round is answered from memory
	result, err = cached.FetchByKeys(context.Background(), []int{1, 2})
	assert.Nil(t, err)
	assert.Equal(t, map[int]string{1: "Squat", 2: "Deadlift"}, result)
	assert.EqualValues(t, 2, atomic.LoadInt64(&inner.fetched))
}

func TestCachedDoesNotCacheAbsent(t *testing.T) {
	inner := &countingSource{data: map[int]string{1: "Squat"}}
	cached := source.NewCached[int, string](inner, source.CachedConfig{Retention: time.Hour})
	defer cached.Close()

	result, err := cached.FetchByKeys(context.Background(), []int{4})
	assert.Nil(t, err)
	assert.Empty(t, result)

	// the absent key goes back to the inner source every time
	_, err = cached.FetchByKeys(context.Background(), []int{4})
	assert.Nil(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&inner.fetched))
}

func TestCachedExpiry(t *testing.T) {
	inner := &countingSource{data: map[int]string{1: "Squat"}}
	cached := source.NewCached[int, string](inner, source.CachedConfig{Retention: 30 * time.Millisecond})
	defer cached.Close()

	_, err := cached.FetchByKeys(context.Background(), []int{1})
	assert.Nil(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt64(&inner.fetched))

	time.Sleep(60 * time.Millisecond)

	_, err = cached.FetchByKeys(context.Background(), []int{1})
	assert.Nil(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&inner.fetched))
}

func TestCachedInvalidate(t *testing.T) {
	inner := &countingSource{data: map[int]string{1: "Squat"}}
	cached := source.NewCached[int, string](inner, source.CachedConfig{Retention: time.Hour})
	defer cached.Close()

	_, err := cached.FetchByKeys(context.Background(), []int{1})
	assert.Nil(t, err)
	cached.Invalidate(1)

	_, err = cached.FetchByKeys(context.Background(), []int{1})
	assert.Nil(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&inner.fetched))
}
