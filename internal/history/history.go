// Package history keeps the linear log of committed store states.
//
// The log is append-only: the initial entry sits at index 0 with a nil
// action and every successful dispatch adds exactly one entry. Entries are
// never removed or rewritten for the lifetime of the store.
//
// Log is not safe for concurrent use on its own. The store appends under
// the same lock that guards its state transitions, which is what makes the
// history order equal to the commit order.
package history

import (
	"time"

	"github.com/roach88/rewind/internal/redux"
)

// TimestampLayout formats entry times for display (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// InitialStateLabel is the display label of the initial entry.
const InitialStateLabel = "Initial state"

// Entry is one committed state with the action that produced it.
type Entry[S any] struct {
	// Seq is the logical commit position, starting at 1 for the initial entry.
	Seq int64

	// State is the committed state value.
	State S

	// Action produced State. Nil for the initial entry.
	Action redux.Action

	// Time is the wall-clock commit time.
	Time time.Time
}

// IsInitial reports whether this is the construction-time entry.
func (e Entry[S]) IsInitial() bool {
	return e.Action == nil
}

// Label returns the action label, or "Initial state" for the initial entry.
func (e Entry[S]) Label() string {
	if e.IsInitial() {
		return InitialStateLabel
	}
	return redux.Label(e.Action)
}

// Timestamp returns Time formatted with TimestampLayout.
func (e Entry[S]) Timestamp() string {
	return e.Time.UTC().Format(TimestampLayout)
}

// Log is an append-only ordered sequence of entries.
type Log[S any] struct {
	clock   *Clock
	entries []Entry[S]
}

// NewLog creates a log seeded with the initial entry.
func NewLog[S any](initial S, at time.Time) *Log[S] {
	l := &Log[S]{
		clock:   NewClock(),
		entries: make([]Entry[S], 0, 16),
	}
	l.Append(Entry[S]{State: initial, Time: at})
	return l
}

// Append adds an entry at the tail and stamps its Seq.
// Any Seq set by the caller is overwritten.
func (l *Log[S]) Append(e Entry[S]) Entry[S] {
	e.Seq = l.clock.Next()
	l.entries = append(l.entries, e)
	return e
}

// All returns a copy of the entries, oldest first.
func (l *Log[S]) All() []Entry[S] {
	out := make([]Entry[S], len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log[S]) Len() int {
	return len(l.entries)
}

// At returns the entry at index i.
func (l *Log[S]) At(i int) (Entry[S], bool) {
	if i < 0 || i >= len(l.entries) {
		return Entry[S]{}, false
	}
	return l.entries[i], true
}

// Last returns the most recent entry. The log is never empty.
func (l *Log[S]) Last() Entry[S] {
	return l.entries[len(l.entries)-1]
}
