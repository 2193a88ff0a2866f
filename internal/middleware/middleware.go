// Package middleware composes dispatch handlers into an onion.
//
// Each middleware wraps the next stage. The first middleware registered
// runs outermost: it sees the action first and the result last. The
// innermost stage is the terminal handler supplied by the store, which
// reduces the action and commits the result.
//
// A middleware may:
//   - inspect or replace the action before calling next
//   - block (honouring ctx) before calling next
//   - inspect the state returned by next
//   - short-circuit by returning without calling next, in which case
//     nothing is committed, recorded, or logged to devtools
package middleware

import (
	"context"

	"github.com/roach88/rewind/internal/redux"
)

// Handler processes one dispatch. state is the committed state observed
// when the dispatch entered the pipeline; the returned state is what the
// stage reports back to its caller.
type Handler[S any] func(ctx context.Context, state S, action redux.Action) (S, error)

// Func wraps the next handler.
type Func[S any] func(next Handler[S]) Handler[S]

// Middleware is a typed middleware component. Dependencies beyond the
// next stage are resolved from a Registry when its Factory runs.
type Middleware[S any] interface {
	Invoke(ctx context.Context, state S, action redux.Action, next Handler[S]) (S, error)
}

// Factory constructs a typed middleware, resolving dependencies from r.
type Factory[S any] func(r *Registry) (Middleware[S], error)

// Inline is the signature accepted by Builder.UseFunc.
type Inline[S any] func(ctx context.Context, state S, action redux.Action, next Handler[S]) (S, error)

// Invoke lets an Inline be used as a Middleware.
func (f Inline[S]) Invoke(ctx context.Context, state S, action redux.Action, next Handler[S]) (S, error) {
	return f(ctx, state, action, next)
}

// Adapt turns a Middleware into a Func.
func Adapt[S any](m Middleware[S]) Func[S] {
	return func(next Handler[S]) Handler[S] {
		return func(ctx context.Context, state S, action redux.Action) (S, error) {
			return m.Invoke(ctx, state, action, next)
		}
	}
}
