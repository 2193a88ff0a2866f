// Package harness runs rewind scenarios: declarative descriptions of a
// store, the actions dispatched to it, and what the devtools inspector
// should have seen.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: todos
//	description: "What this scenario validates"
//	initial:
//	  todos: []
//	  location: /
//	location:
//	  field: location
//	  start: /
//	guards: |
//	  add_todo: {text: string & != ""}
//	rules:
//	  add_todo:
//	    - op: append
//	      path: todos
//	      from: text
//	steps:
//	  - ready: true
//	  - dispatch: add_todo
//	    payload: { text: "write docs" }
//	  - dispatch: add_todo
//	    payload: { text: "" }
//	    expect_error: INVALID_ARGUMENT
//	  - navigate: /settings
//	  - time_travel: 1
//	assertions:
//	  - type: final_state
//	    expect: { todos: ["write docs"] }
//	  - type: trace_count
//	    action: add_todo
//	    count: 1
//
// State is a JSON object. Rules are the reducer: each action label maps to
// an ordered list of operations on dotted paths (set, add, append, unset),
// taking their operand from value or from a payload key.
//
// # Step Types
//
//   - dispatch: dispatch an action with an optional payload
//   - ready: send the inspector's ready message
//   - time_travel: ask the store, through devtools, to jump to a history index
//   - reset: ask the store, through devtools, to return to its initial state
//   - navigate / back: simulate user navigation on the in-memory navigator
//
// # Assertion Types
//
//   - final_state: subset match against the final state
//   - history_length: exact number of history entries
//   - trace_contains: a devtools entry with the label and a matching state
//   - trace_order: labels appear in the given order in the devtools trace
//   - trace_count: a label appears exactly N times in the devtools trace
//   - location: the navigator's final location
//
// # Deterministic Testing
//
// Every run uses a testutil.DeterministicClock for history timestamps and
// canonical JSON for every serialized state, so identical scenarios yield
// byte-identical traces for golden comparison.
package harness
