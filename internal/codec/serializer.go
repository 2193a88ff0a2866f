package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Serializer converts a state into its devtools string form.
type Serializer[S any] func(state S) (string, error)

// Deserializer parses a devtools string form back into a state.
type Deserializer[S any] func(data string) (S, error)

// JSON returns the default serializer pair: canonical JSON out, encoding/json
// in. Numbers decoded into interface values stay json.Number so integer
// states survive a devtools round trip without turning into float64.
func JSON[S any]() (Serializer[S], Deserializer[S]) {
	return SerializeJSON[S], DeserializeJSON[S]
}

// SerializeJSON is the default Serializer.
func SerializeJSON[S any](state S) (string, error) {
	b, err := MarshalCanonical(state)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DeserializeJSON is the default Deserializer.
func DeserializeJSON[S any](data string) (S, error) {
	var state S
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&state); err != nil {
		return state, fmt.Errorf("deserialize state: %w", err)
	}
	return state, nil
}
