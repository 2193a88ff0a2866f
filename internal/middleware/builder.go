package middleware

import (
	"fmt"

	"github.com/roach88/rewind/internal/redux"
)

type stage[S any] struct {
	name    string
	fn      Func[S]
	factory Factory[S]
}

// Builder accumulates middleware in registration order and folds them
// around a terminal handler.
//
// Builder is not safe for concurrent use. Build it once, before the first
// dispatch.
type Builder[S any] struct {
	stages   []stage[S]
	registry *Registry
}

// NewBuilder creates a builder resolving typed middleware dependencies
// from r. A nil r gets an empty registry.
func NewBuilder[S any](r *Registry) *Builder[S] {
	if r == nil {
		r = NewRegistry()
	}
	return &Builder[S]{registry: r}
}

// Registry returns the registry used by UseFactory.
func (b *Builder[S]) Registry() *Registry {
	return b.registry
}

// Len returns the number of registered middleware.
func (b *Builder[S]) Len() int {
	return len(b.stages)
}

// Use appends a middleware.
func (b *Builder[S]) Use(fn Func[S]) *Builder[S] {
	b.stages = append(b.stages, stage[S]{
		name: fmt.Sprintf("middleware[%d]", len(b.stages)),
		fn:   fn,
	})
	return b
}

// UseFunc appends an inline middleware.
func (b *Builder[S]) UseFunc(fn Inline[S]) *Builder[S] {
	if fn == nil {
		return b.Use(nil)
	}
	return b.Use(Adapt[S](fn))
}

// UseFactory appends a typed middleware. The factory runs during Build,
// where dependency and construction failures are reported under name.
func (b *Builder[S]) UseFactory(name string, f Factory[S]) *Builder[S] {
	if name == "" {
		name = fmt.Sprintf("middleware[%d]", len(b.stages))
	}
	b.stages = append(b.stages, stage[S]{name: name, factory: f})
	return b
}

// Build resolves typed middleware and composes the pipeline around
// terminal. Middleware are folded in reverse registration order, so the
// first registered runs outermost.
//
// Errors:
//   - CONFIGURATION_ERROR for a nil terminal, a nil middleware or factory,
//     a factory returning an error or a nil middleware
//   - the same CONFIGURATION_ERROR wraps MISSING_DEPENDENCY when a factory
//     failed to resolve a dependency (IsMissingDependency matches)
func (b *Builder[S]) Build(terminal Handler[S]) (Handler[S], error) {
	if terminal == nil {
		return nil, redux.NewConfigurationError("terminal", "terminal handler is nil", nil)
	}

	funcs := make([]Func[S], len(b.stages))
	for i, st := range b.stages {
		fn, err := b.resolve(st)
		if err != nil {
			return nil, err
		}
		funcs[i] = fn
	}

	h := terminal
	for i := len(funcs) - 1; i >= 0; i-- {
		h = funcs[i](h)
		if h == nil {
			return nil, redux.NewConfigurationError(b.stages[i].name, "middleware returned a nil handler", nil)
		}
	}
	return h, nil
}

func (b *Builder[S]) resolve(st stage[S]) (Func[S], error) {
	if st.fn != nil {
		return st.fn, nil
	}
	if st.factory == nil {
		return nil, redux.NewConfigurationError(st.name, "middleware is nil", nil)
	}

	m, err := st.factory(b.registry)
	if err != nil {
		return nil, redux.NewConfigurationError(st.name, "middleware factory failed", err)
	}
	if m == nil {
		return nil, redux.NewConfigurationError(st.name, "middleware factory returned nil", nil)
	}
	return Adapt(m), nil
}
