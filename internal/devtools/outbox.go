package devtools

import "sync"

// outbox is the bridge's unbounded FIFO of pending messages.
//
// The outbox starts held: messages accumulate but TryDequeue reports
// nothing until release is called. The ready flag lives under the same
// mutex as the slice, so a message is never observed as deliverable ahead
// of one enqueued before it.
//
// The signal channel (buffered, size 1) enables context-aware waiting in
// the pump loop.
type outbox struct {
	mu       sync.Mutex
	messages []Message
	released bool
	closed   bool
	signal   chan struct{}
}

func newOutbox() *outbox {
	return &outbox{
		messages: make([]Message, 0, 64),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue appends a message. Returns false if the outbox is closed.
func (o *outbox) Enqueue(m Message) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return false
	}

	o.messages = append(o.messages, m)
	if o.released {
		o.notify()
	}
	return true
}

// Release makes held messages deliverable. Returns true on the first call.
func (o *outbox) Release() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.released {
		return false
	}
	o.released = true
	if !o.closed {
		o.notify()
	}
	return true
}

// Released reports whether Release has been called.
func (o *outbox) Released() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.released
}

// TryDequeue removes the front message if the outbox has been released.
func (o *outbox) TryDequeue() (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.released || len(o.messages) == 0 {
		return Message{}, false
	}

	m := o.messages[0]
	o.messages[0] = Message{}
	if len(o.messages) == 1 {
		o.messages = o.messages[:0]
	} else {
		o.messages = o.messages[1:]
	}
	return m, true
}

// Wait returns a channel that signals when messages may be deliverable.
// The channel is closed when the outbox is closed.
func (o *outbox) Wait() <-chan struct{} {
	return o.signal
}

// Len returns the number of pending messages, held or not.
func (o *outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.messages)
}

// Closed reports whether Close has been called.
func (o *outbox) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Close rejects further messages and wakes any waiter.
func (o *outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	close(o.signal)
}

// notify must be called with mu held and the outbox open.
func (o *outbox) notify() {
	select {
	case o.signal <- struct{}{}:
	default:
	}
}
