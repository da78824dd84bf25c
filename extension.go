package colligo

// Extension interface is the base interface used for extensions. Concrete
// hook capabilities are discovered by type assertion when the loader is
// created, an extension implements only the hooks it cares about
type Extension interface {
	Name() string // The extension name
}

// Extensions that hook on loader initialization
type InitializationHookExtension[TKey comparable, TValue any] interface {
	InitializationHook(loader *Loader[TKey, TValue]) error
}

// Extensions that hook right before a batch is dispatched to the source
type PreDispatchHookExtension[TKey comparable] interface {
	PreDispatchHook(traceID uint64, keys []TKey)
}

// Extensions that hook after a dispatched batch has settled. On a failed
// dispatch result is nil and err carries the batch error shared by every
// waiter
type PostDispatchHookExtension[TKey comparable, TValue any] interface {
	PostDispatchHook(traceID uint64, keys []TKey, result map[TKey]TValue, err error)
}

// Extensions that hook on every scope cache lookup
type ScopeLookupHookExtension[TKey comparable] interface {
	ScopeLookupHook(scopeID uint64, key TKey, hit bool)
}
