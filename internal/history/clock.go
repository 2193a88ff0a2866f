package history

import "sync/atomic"

// Clock is the monotonic logical clock that stamps history entries.
//
// Every committed entry gets a strictly increasing Seq, so entries can be
// ordered without trusting wall-clock time, which may repeat or go
// backwards between two commits.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
