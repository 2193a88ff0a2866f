// Package journal records devtools sessions in SQLite.
//
// A session is one run of a store with a recording transport attached.
// Each outbound devtools message becomes an entry keyed by (session, seq),
// where seq is the delivery position within the session. Entries are
// append-only; the journal is a debugging record of what the inspector
// saw, not a persistence layer for application state.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: entries must reference a session
//
// All queries order by seq ASC (entries) or created_at, id (sessions) so
// reads are deterministic.
package journal
