package middleware

import (
	"reflect"
	"sync"

	"github.com/roach88/rewind/internal/redux"
)

// Registry holds the services typed middleware may depend on, keyed by
// their static Go type.
type Registry struct {
	mu       sync.RWMutex
	services map[reflect.Type]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[reflect.Type]any)}
}

// Provide registers v as the service for type T, replacing any previous
// registration.
func Provide[T any](r *Registry, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[reflect.TypeFor[T]()] = v
}

// Resolve looks up the service for type T on behalf of requester. A
// missing service is a MISSING_DEPENDENCY error naming both.
func Resolve[T any](r *Registry, requester string) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()

	if r == nil {
		return zero, redux.NewMissingDependency(t.String(), requester)
	}

	r.mu.RLock()
	v, ok := r.services[t]
	r.mu.RUnlock()
	if !ok {
		return zero, redux.NewMissingDependency(t.String(), requester)
	}
	return v.(T), nil
}

// Has reports whether a service is registered for type T.
func Has[T any](r *Registry) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.services[reflect.TypeFor[T]()]
	return ok
}
