package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v\n", event.Seq, event.ActionLabel, event.State)
		}
	}

	return buf.String()
}

// assertFinalState checks expected values against the final state
// (subset semantics, dotted keys address nested fields).
func assertFinalState(result *Result, assertion Assertion) error {
	expect, err := normalizeObject(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state expect: %w", err)
	}

	for _, key := range sortedKeys(expect) {
		actual, ok := lookupPath(result.State, key)
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v", key, expect[key]),
				Actual:   fmt.Sprintf("field %q not present", key),
			}
		}
		if !reflect.DeepEqual(expect[key], actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v", key, expect[key]),
				Actual:   fmt.Sprintf("field %q = %v", key, actual),
			}
		}
	}
	return nil
}

// assertHistoryLength checks the number of history entries.
func assertHistoryLength(result *Result, assertion Assertion) error {
	if result.HistoryLength != assertion.Count {
		return &AssertionError{
			Type:     AssertHistoryLength,
			Expected: fmt.Sprintf("%d history entries", assertion.Count),
			Actual:   fmt.Sprintf("%d history entries", result.HistoryLength),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceContains checks if the trace contains an entry with the label
// whose state matches Expect (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	expect, err := normalizeObject(assertion.Expect)
	if err != nil {
		return fmt.Errorf("trace_contains expect: %w", err)
	}

	for _, event := range trace {
		if event.ActionLabel != assertion.Action {
			continue
		}
		state, _ := event.State.(map[string]any)
		if matchState(state, expect) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with state %v", assertion.Action, assertion.Expect),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(assertion.Actions) && event.ActionLabel == assertion.Actions[next] {
			next++
		}
	}
	if next == len(assertion.Actions) {
		return nil
	}

	for _, want := range assertion.Actions[next:] {
		if !traceHas(trace, want) {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", want),
				Trace:    trace,
			}
		}
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
		Actual:   fmt.Sprintf("%s does not follow %s", assertion.Actions[next], strings.Join(assertion.Actions[:next], ", ")),
		Trace:    trace,
	}
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.ActionLabel == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertLocation checks the navigator's final location.
func assertLocation(result *Result, assertion Assertion) error {
	if result.Location != assertion.Location {
		return &AssertionError{
			Type:     AssertLocation,
			Expected: fmt.Sprintf("location %q", assertion.Location),
			Actual:   fmt.Sprintf("location %q", result.Location),
		}
	}
	return nil
}

// matchState reports whether state contains every expected path.
// Extra keys in state are ignored.
func matchState(state, expected map[string]any) bool {
	for key, want := range expected {
		got, ok := lookupPath(state, key)
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func traceHas(trace []TraceEvent, label string) bool {
	for _, event := range trace {
		if event.ActionLabel == label {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertHistoryLength:
			err = assertHistoryLength(result, assertion)
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertLocation:
			err = assertLocation(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
