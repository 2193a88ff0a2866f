// Package redux defines the vocabulary shared by every part of rewind:
// actions, reducers, and the typed errors the store and pipeline report.
//
// # Actions
//
// An Action is any application value. Variants are ordinary Go types and
// reducers match them with a type switch:
//
//	type Increment struct{}
//	type Rename struct{ Name string }
//
//	func reduce(s Counter, a redux.Action) Counter {
//		switch a := a.(type) {
//		case Increment:
//			s.Count++
//		case Rename:
//			s.Name = a.Name
//		default:
//			// unrecognized: pass through
//		}
//		return s
//	}
//
// Label produces the human-readable tag shown in history and devtools.
//
// # Reducers
//
// A Reducer must be total: every action it does not recognize returns the
// state unchanged. Reducers never mutate their input in place; they return
// a replacement value. The only error a reducer is expected to produce is
// an INVALID_ARGUMENT when handed an uninitialized state it requires, which
// aborts the dispatch without commit.
//
// Root reducers are usually assembled from per-field reducers with Slice
// and Combine.
package redux
