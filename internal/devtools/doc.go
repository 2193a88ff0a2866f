// Package devtools bridges stores to an external state inspector.
//
// A Bridge is constructed once per process and shared by every store that
// wants inspection. Stores call Log on each committed transition; the bridge
// appends the message to an unbounded outbox and returns immediately. While
// the inspector has not announced itself the outbox only accumulates. Once
// Ready is observed (directly or through an inbound "ready" message), the
// pump started with Run delivers the backlog in enqueue order, followed by
// every later message.
//
// Thread-safety model:
//   - Log, Ready, Receive, Stats: safe from any goroutine
//   - Run: at most one active pump per bridge
//   - Flush: only while no pump is running
//
// Inbound traffic from the inspector arrives through Receive. "time_travel"
// and "reset" requests are fanned out to observers registered with
// OnTimeTravel and OnReset.
package devtools
