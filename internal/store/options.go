package store

import (
	"log/slog"
	"time"

	"github.com/roach88/rewind/internal/codec"
	"github.com/roach88/rewind/internal/devtools"
	"github.com/roach88/rewind/internal/middleware"
	"github.com/roach88/rewind/internal/redux"
)

// Option configures a Store.
type Option[S any] func(*Store[S])

// WithDevTools attaches the process-wide devtools bridge. The bridge is
// shared, not owned: Dispose unsubscribes but never stops it.
func WithDevTools[S any](b *devtools.Bridge) Option[S] {
	return func(s *Store[S]) {
		s.bridge = b
	}
}

// WithMiddleware sets the pipeline builder. Middleware registered on it are
// resolved when the store is constructed.
func WithMiddleware[S any](b *middleware.Builder[S]) Option[S] {
	return func(s *Store[S]) {
		s.builder = b
	}
}

// WithSerializer replaces the devtools state encoding.
// Default: canonical JSON (codec.JSON).
func WithSerializer[S any](ser codec.Serializer[S], de codec.Deserializer[S]) Option[S] {
	return func(s *Store[S]) {
		if ser != nil {
			s.serialize = ser
		}
		if de != nil {
			s.deserialize = de
		}
	}
}

// WithLocation enables location sync. getLocation extracts the location a
// state implies; an empty result means "no opinion".
func WithLocation[S any](getLocation func(S) string) Option[S] {
	return func(s *Store[S]) {
		s.getLocation = getLocation
	}
}

// WithLocationReducer sets the reducer applied to NewLocationAction in
// place of the root reducer.
func WithLocationReducer[S any](r redux.Reducer[S]) Option[S] {
	return func(s *Store[S]) {
		s.locationReducer = r
	}
}

// WithClock sets the time source for history timestamps.
// Default: time.Now.
func WithClock[S any](now func() time.Time) Option[S] {
	return func(s *Store[S]) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the store logger. Default: slog.Default().
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(s *Store[S]) {
		if logger != nil {
			s.logger = logger
		}
	}
}
