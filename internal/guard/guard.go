// Package guard validates actions against CUE schemas before they reach
// the reducer.
//
// A guard document maps action labels to schemas:
//
//	add: {
//		path:  string & != ""
//		value: int & >0
//	}
//	navigate: {location: =~"^/"}
//
// An action whose label has no schema is forwarded untouched. The value
// checked is the action's Payload() when it implements Payloader, else the
// action itself, encoded the way encoding/json would encode it.
package guard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rewind/internal/middleware"
	"github.com/roach88/rewind/internal/redux"
)

// Payloader is implemented by actions that carry a distinct payload.
type Payloader interface {
	Payload() any
}

// CompileError reports a guard document that failed to compile.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Guard holds compiled schemas keyed by action label.
//
// A cue.Context is not safe for concurrent use, so Check serializes on mu.
type Guard struct {
	mu      sync.Mutex
	ctx     *cue.Context
	schemas map[string]cue.Value
}

// Compile builds a Guard from CUE source. name is used in error positions.
func Compile(src, name string) (*Guard, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, formatCUEError("guard", err)
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, &CompileError{
			Field:   "guard",
			Message: "document must be a struct of action schemas",
			Pos:     v.Pos(),
		}
	}

	g := &Guard{ctx: ctx, schemas: make(map[string]cue.Value)}
	for iter.Next() {
		schema := iter.Value()
		if err := schema.Err(); err != nil {
			return nil, formatCUEError(iter.Selector().Unquoted(), err)
		}
		g.schemas[iter.Selector().Unquoted()] = schema
	}
	return g, nil
}

// Labels returns the guarded action labels in sorted order.
func (g *Guard) Labels() []string {
	labels := make([]string, 0, len(g.schemas))
	for label := range g.schemas {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Guards reports whether label has a schema.
func (g *Guard) Guards(label string) bool {
	_, ok := g.schemas[label]
	return ok
}

// Check validates action against the schema for its label. A violation is
// an INVALID_ARGUMENT error naming the label.
func (g *Guard) Check(action redux.Action) error {
	label := redux.Label(action)
	schema, ok := g.schemas[label]
	if !ok {
		return nil
	}

	var payload any = action
	if p, ok := action.(Payloader); ok {
		payload = p.Payload()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	val := g.ctx.Encode(payload)
	if err := val.Err(); err != nil {
		return &redux.Error{
			Code:    redux.ErrCodeInvalidArgument,
			Message: fmt.Sprintf("action %q: payload cannot be encoded", label),
			Err:     err,
		}
	}
	if err := schema.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return &redux.Error{
			Code:    redux.ErrCodeInvalidArgument,
			Message: fmt.Sprintf("action %q rejected by guard", label),
			Err:     firstError(err),
		}
	}
	return nil
}

// Middleware returns a middleware that short-circuits actions failing
// Check. Rejected actions never reach the reducer.
func Middleware[S any](g *Guard) middleware.Func[S] {
	return middleware.Adapt[S](checker[S]{g: g})
}

// Factory resolves a *Guard from the registry.
func Factory[S any]() middleware.Factory[S] {
	return func(r *middleware.Registry) (middleware.Middleware[S], error) {
		g, err := middleware.Resolve[*Guard](r, "guard.Guard")
		if err != nil {
			return nil, err
		}
		return checker[S]{g: g}, nil
	}
}

type checker[S any] struct {
	g *Guard
}

func (c checker[S]) Invoke(ctx context.Context, state S, action redux.Action, next middleware.Handler[S]) (S, error) {
	if err := c.g.Check(action); err != nil {
		return state, err
	}
	return next(ctx, state, action)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(field string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	ce := &CompileError{Field: field, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

func firstError(err error) error {
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		return errs[0]
	}
	return err
}
