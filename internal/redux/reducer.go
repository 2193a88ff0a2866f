package redux

// Reducer computes the next state from the previous state and an action.
type Reducer[S any] func(state S, action Action) (S, error)

// Pure adapts an infallible reducer.
func Pure[S any](fn func(S, Action) S) Reducer[S] {
	return func(state S, action Action) (S, error) {
		return fn(state, action), nil
	}
}

// Combine runs reducers in order over the same state, feeding each the
// previous one's result. The first error aborts the chain and the input
// state is returned unchanged.
func Combine[S any](reducers ...Reducer[S]) Reducer[S] {
	return func(state S, action Action) (S, error) {
		next := state
		for _, r := range reducers {
			var err error
			next, err = r(next, action)
			if err != nil {
				return state, err
			}
		}
		return next, nil
	}
}

// Slice lifts a reducer over one field of S into a reducer over S.
// get extracts the field; set returns a copy of S with the field replaced.
func Slice[S, F any](get func(S) F, set func(S, F) S, r Reducer[F]) Reducer[S] {
	return func(state S, action Action) (S, error) {
		field, err := r(get(state), action)
		if err != nil {
			return state, err
		}
		return set(state, field), nil
	}
}

// LocationReducer is the slice reducer for a location string field.
func LocationReducer(location string, action Action) string {
	if a, ok := AsLocation(action); ok {
		return a.Location
	}
	return location
}
