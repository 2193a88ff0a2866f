package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/rewind/internal/devtools"
)

// Subscription is an active Pub/Sub subscription.
// Caller must call Close() when done; context cancellation also stops it.
type Subscription struct {
	errors <-chan error
	done   <-chan struct{}
	cancel func()
	once   sync.Once
}

// Errors returns non-fatal subscription errors (undecodable or rejected
// messages). The subscription continues after errors.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Done is closed once the subscription goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Listen subscribes to the commands channel and feeds every command to
// bridge.ReceiveJSON. The subscription is confirmed before Listen returns.
func (r *Relay) Listen(ctx context.Context, bridge *devtools.Bridge) (*Subscription, error) {
	pubsub, err := r.subscribe(ctx, CommandsChannel(r.instance))
	if err != nil {
		return nil, err
	}

	errorsChan := make(chan error, 10)
	done := make(chan struct{})
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(done)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if err := bridge.ReceiveJSON([]byte(msg.Payload)); err != nil {
					r.logger.Warn("devtools command rejected", "channel", msg.Channel, "error", err)
					select {
					case errorsChan <- fmt.Errorf("devtools command: %w", err):
					case <-subCtx.Done():
						return
					}
				}
			}
		}
	}()

	return &Subscription{errors: errorsChan, done: done, cancel: cancelFunc}, nil
}

// LogSubscription delivers outbound devtools messages published by a store,
// i.e. what a remote inspector sees.
type LogSubscription struct {
	Subscription
	messages <-chan devtools.Message
}

// Messages returns the channel of log messages. It is closed when the
// subscription stops.
func (s *LogSubscription) Messages() <-chan devtools.Message {
	return s.messages
}

// Watch subscribes to the log channel.
//
// Messages are delivered on a buffered channel (size 64). If the
// subscriber is too slow, Redis may drop messages (at-most-once delivery).
func (r *Relay) Watch(ctx context.Context) (*LogSubscription, error) {
	pubsub, err := r.subscribe(ctx, LogChannel(r.instance))
	if err != nil {
		return nil, err
	}

	messages := make(chan devtools.Message, 64)
	errorsChan := make(chan error, 10)
	done := make(chan struct{})
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(done)
		defer close(messages)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				m, err := devtools.Decode([]byte(msg.Payload))
				if err != nil {
					select {
					case errorsChan <- err:
					case <-subCtx.Done():
						return
					}
					continue
				}
				select {
				case messages <- m:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &LogSubscription{
		Subscription: Subscription{errors: errorsChan, done: done, cancel: cancelFunc},
		messages:     messages,
	}, nil
}

// subscribe opens a subscription and waits for Redis to confirm it, so
// messages published after it returns are not missed.
func (r *Relay) subscribe(ctx context.Context, channel string) (*redis.PubSub, error) {
	pubsub := r.rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	return pubsub, nil
}
