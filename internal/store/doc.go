// Package store implements the single-writer state container.
//
// A Store owns the current state, the root reducer, the history log, and
// the composed middleware pipeline. Every dispatch runs the pipeline; its
// innermost stage takes the store lock, applies the reducer to the current
// committed state, commits the result, appends one history entry, and
// enqueues one devtools log message, all as one atomic unit. Change
// observers then run outside the lock, in registration order, followed by
// location sync.
//
// Time travel replaces the state directly under the same lock. It never
// runs the pipeline or the reducer and never appends history.
//
// Lifecycle:
//
//	s, err := store.New(initial, reducer, store.WithDevTools[State](bridge))
//	defer s.Dispose()
//	err = s.Init(ctx, navigator) // optional, enables location sync
//	err = s.Dispatch(ctx, Increment{})
package store
