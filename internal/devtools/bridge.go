package devtools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/rewind/internal/notify"
)

// DefaultSendTimeout bounds a single Transport.Send call made by the pump.
const DefaultSendTimeout = 5 * time.Second

// ErrPumpRunning is returned by Run and Flush when another pump is active.
var ErrPumpRunning = errors.New("devtools pump already running")

// Bridge buffers outbound log traffic until the inspector is ready and
// dispatches inbound requests to registered observers.
type Bridge struct {
	out         *outbox
	logger      *slog.Logger
	sendTimeout time.Duration
	running     atomic.Bool

	sent    atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64

	timeTravel notify.Observers[string]
	reset      notify.Observers[struct{}]
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger used for delivery failures and lifecycle
// events. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithSendTimeout bounds each Transport.Send. Zero or negative disables the
// per-message timeout.
func WithSendTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.sendTimeout = d
	}
}

// New creates a bridge in the NotReady state.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		out:         newOutbox(),
		logger:      slog.Default(),
		sendTimeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.timeTravel.SetPanicHandler(b.observerPanicked)
	b.reset.SetPanicHandler(b.observerPanicked)
	return b
}

// Log enqueues a state transition for the inspector. It never blocks on
// delivery. Messages logged after Stop are dropped and counted.
func (b *Bridge) Log(label, state string) {
	if !b.out.Enqueue(LogMessage(label, state)) {
		b.dropped.Add(1)
		b.logger.Debug("devtools message dropped after stop", "action", label)
	}
}

// Ready transitions the bridge to Ready and releases the backlog. Further
// calls are no-ops.
func (b *Bridge) Ready() {
	if b.out.Release() {
		b.logger.Info("devtools ready", "pending", b.out.Len())
	}
}

// IsReady reports whether Ready has been observed.
func (b *Bridge) IsReady() bool {
	return b.out.Released()
}

// Receive handles an inbound message from the inspector.
func (b *Bridge) Receive(msg Message) error {
	switch msg.Kind {
	case KindReady:
		b.Ready()
	case KindTimeTravel:
		if msg.State == "" {
			return fmt.Errorf("time_travel message missing state")
		}
		b.logger.Debug("devtools time travel requested", "observers", b.timeTravel.Len())
		b.timeTravel.Notify(msg.State)
	case KindReset:
		b.logger.Debug("devtools reset requested", "observers", b.reset.Len())
		b.reset.Notify(struct{}{})
	default:
		return fmt.Errorf("%w: %q is not accepted inbound", ErrUnknownKind, msg.Kind)
	}
	return nil
}

// ReceiveJSON decodes a wire message and hands it to Receive.
func (b *Bridge) ReceiveJSON(data []byte) error {
	msg, err := Decode(data)
	if err != nil {
		return err
	}
	return b.Receive(msg)
}

// OnTimeTravel registers fn to receive the serialized state of every
// time-travel request. The returned func unsubscribes.
func (b *Bridge) OnTimeTravel(fn func(state string)) func() {
	return b.timeTravel.Subscribe(fn)
}

// OnReset registers fn to run on every reset request. The returned func
// unsubscribes.
func (b *Bridge) OnReset(fn func()) func() {
	return b.reset.Subscribe(func(struct{}) { fn() })
}

// Run pumps released messages to t until ctx is cancelled or Stop is
// called. On Stop, already released messages are delivered before Run
// returns nil. Cancellation only ends this pump and returns ctx.Err(); the
// outbox stays open so a later Run or Flush picks up where it left off.
func (b *Bridge) Run(ctx context.Context, t Transport) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrPumpRunning
	}
	defer b.running.Store(false)

	b.logger.Info("devtools pump starting")

	for {
		if msg, ok := b.out.TryDequeue(); ok {
			b.deliver(ctx, t, msg)
			continue
		}

		if b.out.Closed() {
			b.logger.Info("devtools pump stopping: outbox closed", "held", b.out.Len())
			return nil
		}

		select {
		case <-ctx.Done():
			b.logger.Info("devtools pump stopping: context cancelled", "held", b.out.Len())
			return ctx.Err()
		case <-b.out.Wait():
			// loop back to TryDequeue
		}
	}
}

// Flush delivers every currently released message to t on the calling
// goroutine. It fails with ErrPumpRunning while Run is active.
func (b *Bridge) Flush(ctx context.Context, t Transport) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrPumpRunning
	}
	defer b.running.Store(false)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, ok := b.out.TryDequeue()
		if !ok {
			return nil
		}
		b.deliver(ctx, t, msg)
	}
}

// Stop closes the outbox. A running pump drains released messages and
// returns.
func (b *Bridge) Stop() {
	b.out.Close()
}

// Stats is a snapshot of bridge counters.
type Stats struct {
	Ready   bool   `json:"ready"`
	Pending int    `json:"pending"`
	Sent    uint64 `json:"sent"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped"`
}

// Stats returns the current counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Ready:   b.out.Released(),
		Pending: b.out.Len(),
		Sent:    b.sent.Load(),
		Failed:  b.failed.Load(),
		Dropped: b.dropped.Load(),
	}
}

func (b *Bridge) deliver(ctx context.Context, t Transport, msg Message) {
	sendCtx := ctx
	if b.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, b.sendTimeout)
		defer cancel()
	}

	if err := t.Send(sendCtx, msg); err != nil {
		// Log and continue: one broken inspector must not stall the stream.
		b.failed.Add(1)
		b.logger.Warn("devtools delivery failed",
			"kind", msg.Kind,
			"action", msg.ActionLabel,
			"error", err,
		)
		return
	}
	b.sent.Add(1)
}

func (b *Bridge) observerPanicked(_ any, panicValue any) {
	b.logger.Error("devtools observer panicked", "panic", panicValue)
}
