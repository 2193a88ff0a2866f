package devtools

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies a devtools wire message.
type Kind string

const (
	// KindLog is an outbound state transition.
	KindLog Kind = "log"

	// KindReady announces that the inspector is listening.
	KindReady Kind = "ready"

	// KindTimeTravel asks stores to jump to the serialized state carried in
	// the message.
	KindTimeTravel Kind = "time_travel"

	// KindReset asks stores to return to their initial state.
	KindReset Kind = "reset"
)

// ErrUnknownKind is returned for inbound messages with an unrecognized kind.
var ErrUnknownKind = errors.New("unknown devtools message kind")

// Message is the JSON wire form exchanged with the inspector.
//
//	{"kind":"log","actionLabel":"Increment","state":"{\"count\":1}"}
//
// State is always the serialized string form, never a nested object, so
// the inspector can diff payloads byte for byte.
type Message struct {
	Kind        Kind   `json:"kind"`
	ActionLabel string `json:"actionLabel,omitempty"`
	State       string `json:"state,omitempty"`
}

// LogMessage builds an outbound log message.
func LogMessage(label, state string) Message {
	return Message{Kind: KindLog, ActionLabel: label, State: state}
}

// Encode returns the JSON wire form.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a wire message and checks its kind.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode devtools message: %w", err)
	}
	if err := m.validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (m Message) validate() error {
	switch m.Kind {
	case KindLog, KindReady, KindReset:
		return nil
	case KindTimeTravel:
		if m.State == "" {
			return fmt.Errorf("time_travel message missing state")
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
}
