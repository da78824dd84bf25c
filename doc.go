// Package colligo coalesces concurrent point-lookups into batched fetches
// against a backing store.
/*
A Loader collects the keys requested during a short collection window,
deduplicates them and sends the whole set to its Source in one round-trip.
The results are fanned back out to every caller, callers whose key does not
exist receive a definite miss rather than an error.

A Scope adds a per-request cache on top: within one scope every key is
fetched at most once, repeated lookups return the settled outcome, failed
ones included. Scopes are created per logical request and thrown away with
it, nothing is shared between them.

	loader, err := colligo.New(colligo.Config[int, Exercise]{
		Source: exerciseSource,
		Wait:   2 * time.Millisecond,
	})
	...
	scope := loader.NewScope()
	exercise, found, err := scope.Load(ctx, 1)

Bulk listings bypass all of this through the separate Lister interface, they
are unbatched, uncached and shaped by the store alone.
*/
package colligo
