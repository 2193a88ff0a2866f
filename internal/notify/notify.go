// Package notify provides ordered observer lists.
//
// Observers are invoked synchronously, in registration order, on the
// goroutine that calls Notify. The list is snapshotted before invocation, so
// an observer may subscribe or unsubscribe (itself or others) while being
// notified without deadlocking; such changes apply from the next Notify.
package notify

import (
	"sync"
)

// PanicHandler is called when an observer panics.
type PanicHandler func(value any, panicValue any)

type observer[T any] struct {
	id uint64
	fn func(T)
}

// Observers is a list of callbacks receiving values of type T.
// The zero value is ready to use.
type Observers[T any] struct {
	mu           sync.RWMutex
	nextID       uint64
	observers    []observer[T]
	panicHandler PanicHandler
}

// Subscribe registers fn and returns a func that removes it.
// The returned func is idempotent.
func (o *Observers[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	o.nextID++
	id := o.nextID
	o.observers = append(o.observers, observer[T]{id: id, fn: fn})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { o.remove(id) })
	}
}

func (o *Observers[T]) remove(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, obs := range o.observers {
		if obs.id == id {
			o.observers = append(o.observers[:i:i], o.observers[i+1:]...)
			return
		}
	}
}

// Notify invokes every observer with v.
func (o *Observers[T]) Notify(v T) {
	o.mu.RLock()
	if len(o.observers) == 0 {
		o.mu.RUnlock()
		return
	}
	// Copy so observers run without the lock held
	snapshot := make([]observer[T], len(o.observers))
	copy(snapshot, o.observers)
	panicHandler := o.panicHandler
	o.mu.RUnlock()

	for _, obs := range snapshot {
		call(obs.fn, v, panicHandler)
	}
}

func call[T any](fn func(T), v T, panicHandler PanicHandler) {
	defer func() {
		if r := recover(); r != nil {
			if panicHandler != nil {
				panicHandler(v, r)
			}
		}
	}()
	fn(v)
}

// Len returns the number of registered observers.
func (o *Observers[T]) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.observers)
}

// Clear removes all observers.
func (o *Observers[T]) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = nil
}

// SetPanicHandler sets a function to be called when an observer panics.
// Without one, panics are recovered and dropped.
func (o *Observers[T]) SetPanicHandler(handler PanicHandler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.panicHandler = handler
}
