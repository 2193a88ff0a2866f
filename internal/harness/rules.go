package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/rewind/internal/redux"
)

// State is the store state driven by scenarios: a JSON object whose
// numbers are json.Number.
type State = map[string]any

// Action is a scenario action: a label plus an optional payload.
type Action struct {
	Type string
	Data map[string]any
}

// Label implements redux.Labeler.
func (a Action) Label() string { return a.Type }

// Payload exposes the payload to guards.
func (a Action) Payload() any {
	if a.Data == nil {
		return map[string]any{}
	}
	return a.Data
}

// RuleSet is a reducer defined by rules keyed on action label.
type RuleSet map[string][]Rule

// Reducer returns the rule set as a redux.Reducer. Actions without rules,
// including non-scenario actions, pass through unchanged. Rule failures
// are INVALID_ARGUMENT errors and leave the state untouched.
func (rs RuleSet) Reducer() redux.Reducer[State] {
	return func(state State, action redux.Action) (State, error) {
		if state == nil {
			return state, redux.NewInvalidArgument("state is not initialized")
		}

		act, ok := action.(Action)
		if !ok {
			return state, nil
		}
		rules, ok := rs[act.Type]
		if !ok {
			return state, nil
		}

		// States are shared with the history, so rules work on a copy.
		next := deepCopy(state).(State)
		for i, r := range rules {
			if err := r.apply(next, act.Data); err != nil {
				return state, redux.NewInvalidArgument("%s: rule %d (%s %s): %v", act.Type, i, r.Op, r.Path, err)
			}
		}
		return next, nil
	}
}

// locationReducer stores NewLocationAction locations in field.
func locationReducer(field string) redux.Reducer[State] {
	return func(state State, action redux.Action) (State, error) {
		loc, ok := redux.AsLocation(action)
		if !ok {
			return state, nil
		}
		next := deepCopy(state).(State)
		next[field] = loc.Location
		return next, nil
	}
}

func (r Rule) apply(state State, payload map[string]any) error {
	operand, err := r.operand(payload)
	if err != nil {
		return err
	}

	switch r.Op {
	case OpSet:
		return setPath(state, r.Path, operand)
	case OpUnset:
		deletePath(state, r.Path)
		return nil
	case OpAdd:
		if operand == nil {
			operand = json.Number("1")
		}
		current, ok := lookupPath(state, r.Path)
		if !ok {
			current = json.Number("0")
		}
		sum, err := addNumbers(current, operand)
		if err != nil {
			return err
		}
		return setPath(state, r.Path, sum)
	case OpAppend:
		current, ok := lookupPath(state, r.Path)
		if !ok || current == nil {
			return setPath(state, r.Path, []any{operand})
		}
		list, ok := current.([]any)
		if !ok {
			return fmt.Errorf("cannot append to %T", current)
		}
		grown := make([]any, len(list), len(list)+1)
		copy(grown, list)
		return setPath(state, r.Path, append(grown, operand))
	default:
		return fmt.Errorf("unknown op %q", r.Op)
	}
}

func (r Rule) operand(payload map[string]any) (any, error) {
	if r.From == "" {
		if r.Value == nil {
			return nil, nil
		}
		return normalize(r.Value)
	}
	v, ok := lookupPath(payload, r.From)
	if !ok {
		return nil, fmt.Errorf("payload has no %q", r.From)
	}
	return normalize(v)
}

// normalize converts a decoded YAML or Go value into the JSON form the
// store serializes: maps, slices, strings, bools, nil, and json.Number.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeObject is normalize for JSON objects. nil stays an empty object.
func normalizeObject(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	v, err := normalize(m)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
	return obj, nil
}

func addNumbers(a, b any) (json.Number, error) {
	x, ok := a.(json.Number)
	if !ok {
		return "", fmt.Errorf("cannot add to %T", a)
	}
	y, ok := b.(json.Number)
	if !ok {
		return "", fmt.Errorf("cannot add %T", b)
	}

	xi, errX := x.Int64()
	yi, errY := y.Int64()
	if errX == nil && errY == nil {
		return json.Number(fmt.Sprint(xi + yi)), nil
	}

	xf, err := x.Float64()
	if err != nil {
		return "", err
	}
	yf, err := y.Float64()
	if err != nil {
		return "", err
	}
	// Match encoding/json's float formatting so sums compare equal to
	// literals decoded from YAML.
	raw, err := json.Marshal(xf + yf)
	if err != nil {
		return "", err
	}
	return json.Number(raw), nil
}

func lookupPath(root map[string]any, path string) (any, bool) {
	var cur any = root
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(root map[string]any, path string, v any) error {
	keys := strings.Split(path, ".")
	obj := root
	for _, key := range keys[:len(keys)-1] {
		child, ok := obj[key]
		if !ok || child == nil {
			next := map[string]any{}
			obj[key] = next
			obj = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("%q is %T, not an object", key, child)
		}
		obj = next
	}
	obj[keys[len(keys)-1]] = v
	return nil
}

func deletePath(root map[string]any, path string) {
	keys := strings.Split(path, ".")
	obj := root
	for _, key := range keys[:len(keys)-1] {
		next, ok := obj[key].(map[string]any)
		if !ok {
			return
		}
		obj = next
	}
	delete(obj, keys[len(keys)-1])
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = deepCopy(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = deepCopy(elem)
		}
		return out
	default:
		return v
	}
}
