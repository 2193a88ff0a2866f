package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/rewind/internal/codec"
	"github.com/roach88/rewind/internal/devtools"
	"github.com/roach88/rewind/internal/history"
	"github.com/roach88/rewind/internal/location"
	"github.com/roach88/rewind/internal/middleware"
	"github.com/roach88/rewind/internal/notify"
	"github.com/roach88/rewind/internal/redux"
)

// Store is a Redux-style state container. All methods are safe for
// concurrent use.
//
// INVARIANTS:
//   - state, history, and the devtools enqueue change only under mu
//   - history and devtools order equal commit order
//   - history[0] is the construction-time entry with a nil action
type Store[S any] struct {
	mu      sync.Mutex
	state   S
	initial S
	history *history.Log[S]

	reducer         redux.Reducer[S]
	locationReducer redux.Reducer[S]
	getLocation     func(S) string
	serialize       codec.Serializer[S]
	deserialize     codec.Deserializer[S]
	builder         *middleware.Builder[S]
	pipeline        middleware.Handler[S]
	bridge          *devtools.Bridge
	now             func() time.Time
	logger          *slog.Logger

	changes notify.Observers[S]

	// Location sync. locMu never nests inside mu.
	locMu           sync.Mutex
	navigator       location.Navigator
	currentLocation string
	navCtx          context.Context
	unsubNavigator  func()
	timeTraveling   atomic.Int32

	unsubReset      func()
	unsubTimeTravel func()
	disposed        atomic.Bool
}

// New creates a store holding initial.
//
// Construction builds the middleware pipeline (reporting CONFIGURATION_ERROR
// or MISSING_DEPENDENCY before any dispatch), seeds the history with the
// initial entry, logs "initial" to devtools, and subscribes to devtools
// reset and time-travel requests.
func New[S any](initial S, reducer redux.Reducer[S], opts ...Option[S]) (*Store[S], error) {
	if reducer == nil {
		return nil, redux.NewConfigurationError("store", "root reducer is nil", nil)
	}

	ser, de := codec.JSON[S]()
	s := &Store[S]{
		state:       initial,
		initial:     initial,
		reducer:     reducer,
		serialize:   ser,
		deserialize: de,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.builder == nil {
		s.builder = middleware.NewBuilder[S](nil)
	}

	pipeline, err := s.builder.Build(s.commit)
	if err != nil {
		return nil, err
	}
	s.pipeline = pipeline

	s.changes.SetPanicHandler(func(_ any, panicValue any) {
		s.logger.Error("change observer panicked", "panic", panicValue)
	})

	s.history = history.NewLog(initial, s.now())

	if s.bridge != nil {
		s.unsubReset = s.bridge.OnReset(s.onDevToolsReset)
		s.unsubTimeTravel = s.bridge.OnTimeTravel(s.onDevToolsTimeTravel)
		s.logToDevTools(redux.InitialLabel, initial)
	}

	return s, nil
}

// State returns the current committed state.
func (s *Store[S]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of the history, oldest first.
func (s *Store[S]) History() []history.Entry[S] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.All()
}

// HistoryLen returns the number of history entries.
func (s *Store[S]) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}

// Location returns the last location the store observed or requested.
func (s *Store[S]) Location() string {
	s.locMu.Lock()
	defer s.locMu.Unlock()
	return s.currentLocation
}

// OnChange registers fn to receive the committed state after every
// dispatch and time travel. Observers run in registration order, outside
// the store lock, so they may read State or dispatch.
func (s *Store[S]) OnChange(fn func(state S)) (unsubscribe func()) {
	return s.changes.Subscribe(fn)
}

// Dispatch runs action through the middleware pipeline.
//
// A nil error means the pipeline completed; it does not imply a commit,
// since any middleware may short-circuit. Reducer errors (for example
// INVALID_ARGUMENT) abort the dispatch with nothing committed.
func (s *Store[S]) Dispatch(ctx context.Context, action redux.Action) error {
	_, err := s.pipeline(ctx, s.State(), action)
	return err
}

// TimeTravel replaces the current state with state, bypassing the
// pipeline, the reducer, and the history. Change observers and location
// sync still run; navigator echoes caused by it are not re-dispatched.
func (s *Store[S]) TimeTravel(state S) {
	s.timeTraveling.Add(1)
	defer s.timeTraveling.Add(-1)

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.changed()
}

// commit is the terminal pipeline stage.
func (s *Store[S]) commit(_ context.Context, _ S, action redux.Action) (S, error) {
	reducer := s.reducer
	if _, ok := redux.AsLocation(action); ok && s.locationReducer != nil {
		reducer = s.locationReducer
	}

	next, err := s.apply(reducer, action)
	if err != nil {
		return next, err
	}

	s.changed()
	return next, nil
}

// apply reduces, commits, records history, and enqueues the devtools
// message as one atomic unit.
func (s *Store[S]) apply(reducer redux.Reducer[S], action redux.Action) (S, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := reducer(s.state, action)
	if err != nil {
		return s.state, err
	}

	s.state = next
	s.history.Append(history.Entry[S]{State: next, Action: action, Time: s.now()})
	if s.bridge != nil {
		s.logToDevTools(redux.Label(action), next)
	}
	return next, nil
}

// logToDevTools must be called with mu held (or during construction).
func (s *Store[S]) logToDevTools(label string, state S) {
	payload, err := s.serialize(state)
	if err != nil {
		s.logger.Warn("devtools serialization failed", "action", label, "error", err)
		return
	}
	s.bridge.Log(label, payload)
}

// changed publishes the committed state, not the value of the commit that
// triggered it: an observer may dispatch again, and the navigator must
// follow whatever state is current once observers return.
func (s *Store[S]) changed() {
	s.changes.Notify(s.State())
	s.syncLocation(s.State())
}

func (s *Store[S]) onDevToolsReset() {
	s.logger.Debug("devtools reset")
	s.TimeTravel(s.initial)
}

func (s *Store[S]) onDevToolsTimeTravel(payload string) {
	state, err := s.deserialize(payload)
	if err != nil {
		s.logger.Warn("devtools time travel rejected", "error", err)
		return
	}
	s.TimeTravel(state)
}
