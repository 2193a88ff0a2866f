package devtools

import (
	"context"
	"errors"
	"sync"
)

// Transport delivers outbound messages to an inspector.
//
// Send is only ever called from the bridge's pump goroutine, one message
// at a time, in enqueue order.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Fanout delivers every message to each transport in order. All transports
// are attempted; their errors are joined.
type Fanout []Transport

// Send implements Transport.
func (f Fanout) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, t := range f {
		if t == nil {
			continue
		}
		if err := t.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder is an in-memory Transport that keeps every message it receives.
// The zero value is ready to use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Send implements Transport.
func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

// Messages returns a copy of the recorded messages, oldest first.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Labels returns the action labels of the recorded messages.
func (r *Recorder) Labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	for i, m := range r.messages {
		out[i] = m.ActionLabel
	}
	return out
}

// Len returns the number of recorded messages.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}
