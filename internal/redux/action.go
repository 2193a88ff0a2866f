package redux

import (
	"fmt"
	"reflect"
)

// Action describes something that happened. Any value can be an action.
type Action any

// Labeler is implemented by actions that name themselves.
type Labeler interface {
	Label() string
}

// InitialLabel is the devtools label of a store's construction-time state.
const InitialLabel = "initial"

// NewLocationAction is dispatched when the external navigator reports a
// location change.
type NewLocationAction struct {
	Location string `json:"location"`
}

// Label implements Labeler.
func (a NewLocationAction) Label() string {
	return "NewLocation"
}

// Label returns the display label for an action.
//
// Resolution order: Labeler, fmt.Stringer, then the bare Go type name
// (pointer and package qualifiers stripped). A nil action is the initial
// state and labels as InitialLabel.
func Label(a Action) string {
	if a == nil {
		return InitialLabel
	}
	switch v := a.(type) {
	case Labeler:
		return v.Label()
	case fmt.Stringer:
		return v.String()
	}

	t := reflect.TypeOf(a)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

// AsLocation reports whether a is a NewLocationAction (by value or pointer).
func AsLocation(a Action) (NewLocationAction, bool) {
	switch v := a.(type) {
	case NewLocationAction:
		return v, true
	case *NewLocationAction:
		if v != nil {
			return *v, true
		}
	}
	return NewLocationAction{}, false
}
