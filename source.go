package colligo

import "context"

// Source is an interface for backing stores, they take a deduplicated set of
// keys and return the entities they hold for them. Keys with no entity are
// simply left out of the result map, a missing key is not an error
type Source[TKey comparable, TValue any] interface {
	// Unique identifier for this source used for logging and metric purposes
	Identifier() string

	// The function that will be called to fetch the entities for one batch of
	// keys in a single round-trip, the returned map may be smaller than the
	// key set but never larger
	FetchByKeys(ctx context.Context, keys []TKey) (map[TKey]TValue, error)
}

// Lister is the unbatched listing capability of a store, fetching every
// entity of the kind in one call. It is a separate interface so the listing
// path cannot be mistaken for the keyed contract, listings bypass loaders
// and scopes entirely and share no state with them
type Lister[TValue any] interface {
	FetchAll(ctx context.Context) ([]TValue, error)
}

// FetchFunc is any plain function usable as the fetch operation of a source
type FetchFunc[TKey comparable, TValue any] func(ctx context.Context, keys []TKey) (map[TKey]TValue, error)

// Wrap a fetch function into a Source with the given identifier
func SourceFunc[TKey comparable, TValue any](identifier string, fn FetchFunc[TKey, TValue]) Source[TKey, TValue] {
	return funcSource[TKey, TValue]{identifier: identifier, fn: fn}
}

type funcSource[TKey comparable, TValue any] struct {
	identifier string
	fn         FetchFunc[TKey, TValue]
}

func (s funcSource[TKey, TValue]) Identifier() string { return s.identifier }

func (s funcSource[TKey, TValue]) FetchByKeys(ctx context.Context, keys []TKey) (map[TKey]TValue, error) {
	return s.fn(ctx, keys)
}
