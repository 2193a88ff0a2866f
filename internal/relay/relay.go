// Package relay carries devtools traffic over Redis Pub/Sub.
//
// Outbound log messages are published on rewind:{instance}:devtools_log.
// Inspectors publish ready, time_travel, and reset commands on
// rewind:{instance}:devtools_commands, which Listen feeds to a bridge.
// Pub/Sub is at-most-once: messages published while nobody is subscribed
// are lost.
package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/rewind/internal/devtools"
)

// LogChannel returns the channel outbound devtools messages are published on.
func LogChannel(instance string) string {
	return fmt.Sprintf("rewind:%s:devtools_log", instance)
}

// CommandsChannel returns the channel inspector commands arrive on.
func CommandsChannel(instance string) string {
	return fmt.Sprintf("rewind:%s:devtools_commands", instance)
}

// Relay is an instance-scoped Redis devtools transport. Safe for concurrent
// use.
type Relay struct {
	rdb      *redis.Client
	instance string
	logger   *slog.Logger
}

// New creates a relay for instance.
// Returns an error if instance is empty.
func New(opts *redis.Options, instance string, logger *slog.Logger) (*Relay, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		rdb:      redis.NewClient(opts),
		instance: instance,
		logger:   logger,
	}, nil
}

// Instance returns the instance name used for channel namespacing.
func (r *Relay) Instance() string {
	return r.instance
}

// Close closes the Redis connection.
func (r *Relay) Close() error {
	return r.rdb.Close()
}

// Ping verifies Redis connectivity.
func (r *Relay) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Send publishes msg on the log channel. Implements devtools.Transport.
func (r *Relay) Send(ctx context.Context, msg devtools.Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode devtools message: %w", err)
	}
	if err := r.rdb.Publish(ctx, LogChannel(r.instance), payload).Err(); err != nil {
		return fmt.Errorf("publish devtools message: %w", err)
	}
	return nil
}

// Command publishes an inspector command. Inspectors written in Go, and
// tests, use it to drive a remote store.
func (r *Relay) Command(ctx context.Context, msg devtools.Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode devtools command: %w", err)
	}
	if err := r.rdb.Publish(ctx, CommandsChannel(r.instance), payload).Err(); err != nil {
		return fmt.Errorf("publish devtools command: %w", err)
	}
	return nil
}
