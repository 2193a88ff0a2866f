// Package testutil holds deterministic helpers shared by tests and the
// scenario harness.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time a DeterministicClock reports for seq 0.
var Epoch = time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)

// DeterministicClock is a thread-safe clock for tests. Each call to Now
// advances it by one Step from Epoch, so runs of the same scenario stamp
// identical times on their history entries.
type DeterministicClock struct {
	mu   sync.Mutex
	seq  int64
	step time.Duration
}

// NewDeterministicClock creates a clock at seq 0 that advances one
// millisecond per tick.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{step: time.Millisecond}
}

// Next increments and returns the next sequence number. The first call
// returns 1.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Now ticks the clock and returns Epoch plus seq steps. It has the
// signature of time.Now so it can be passed to WithClock options.
func (c *DeterministicClock) Now() time.Time {
	seq := c.Next()
	return Epoch.Add(time.Duration(seq) * c.step)
}

// Reset rewinds the clock to seq 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
