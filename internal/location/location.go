// Package location defines the navigation collaborator a store keeps in
// sync with its state.
package location

import (
	"sync"

	"github.com/roach88/rewind/internal/notify"
)

// Navigator is the external source of truth for the current location.
//
// OnLocationChanged observers fire for every location change, whether it
// came from the user or from NavigateTo. Stores compare against the last
// known location to ignore their own echoes.
type Navigator interface {
	Location() string
	OnLocationChanged(fn func(location string)) (unsubscribe func())
	NavigateTo(location string)
}

// Memory is an in-process Navigator with a back stack. It stands in for a
// browser history in tests, scenarios, and headless programs.
type Memory struct {
	mu        sync.Mutex
	stack     []string
	observers notify.Observers[string]
}

// NewMemory creates a navigator positioned at start.
func NewMemory(start string) *Memory {
	return &Memory{stack: []string{start}}
}

// Location returns the current location.
func (m *Memory) Location() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stack[len(m.stack)-1]
}

// OnLocationChanged implements Navigator.
func (m *Memory) OnLocationChanged(fn func(location string)) func() {
	return m.observers.Subscribe(fn)
}

// NavigateTo implements Navigator. Navigating to the current location is a
// no-op and notifies nobody.
func (m *Memory) NavigateTo(location string) {
	m.push(location)
}

// Navigate simulates a user-initiated navigation.
func (m *Memory) Navigate(location string) {
	m.push(location)
}

// Back pops the current location and returns to the previous one. It
// returns false when there is nothing to go back to.
func (m *Memory) Back() bool {
	m.mu.Lock()
	if len(m.stack) < 2 {
		m.mu.Unlock()
		return false
	}
	m.stack = m.stack[:len(m.stack)-1]
	loc := m.stack[len(m.stack)-1]
	m.mu.Unlock()

	m.observers.Notify(loc)
	return true
}

// Stack returns a copy of the back stack, oldest first.
func (m *Memory) Stack() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.stack))
	copy(out, m.stack)
	return out
}

// Observers returns the number of registered observers.
func (m *Memory) Observers() int {
	return m.observers.Len()
}

func (m *Memory) push(location string) {
	m.mu.Lock()
	if m.stack[len(m.stack)-1] == location {
		m.mu.Unlock()
		return
	}
	m.stack = append(m.stack, location)
	m.mu.Unlock()

	// Notify outside the lock so observers may read Location.
	m.observers.Notify(location)
}
