package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/rewind/internal/codec"
	"github.com/roach88/rewind/internal/devtools"
	"github.com/roach88/rewind/internal/guard"
	"github.com/roach88/rewind/internal/location"
	"github.com/roach88/rewind/internal/middleware"
	"github.com/roach88/rewind/internal/store"
)

// DefaultStartLocation is the navigator's start when a scenario omits it.
const DefaultStartLocation = "/"

// Option configures an Instance.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	now        func() time.Time
	bridge     *devtools.Bridge
	middleware []middleware.Func[State]
	transcript devtools.Transport
}

// WithLogger sets the logger for the store, bridge, and dispatch logging.
// Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the history clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithBridge uses an existing devtools bridge instead of a private one.
func WithBridge(b *devtools.Bridge) Option {
	return func(o *options) {
		o.bridge = b
	}
}

// WithMiddleware appends middleware after the built-in logger and guard.
func WithMiddleware(fns ...middleware.Func[State]) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, fns...)
	}
}

// WithTranscript copies every delivered devtools message to t during Run,
// alongside the trace recorder.
func WithTranscript(t devtools.Transport) Option {
	return func(o *options) {
		o.transcript = t
	}
}

// Instance is a live store built from a scenario.
type Instance struct {
	Store     *store.Store[State]
	Bridge    *devtools.Bridge
	Navigator *location.Memory // nil unless the scenario has a location block
	Guard     *guard.Guard     // nil unless the scenario has guards

	logger     *slog.Logger
	ownsBridge bool
}

// NewInstance builds the store a scenario describes and, when the scenario
// has a location block, connects it to an in-memory navigator.
func NewInstance(ctx context.Context, s *Scenario, opts ...Option) (*Instance, error) {
	o := &options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	owns := o.bridge == nil
	if owns {
		o.bridge = devtools.New(devtools.WithLogger(o.logger))
	}

	initial, err := normalizeObject(s.Initial)
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}

	inst := &Instance{Bridge: o.bridge, logger: o.logger, ownsBridge: owns}

	builder := middleware.NewBuilder[State](middleware.NewRegistry()).
		Use(middleware.Logger[State](o.logger))
	if s.Guards != "" {
		g, err := guard.Compile(s.Guards, s.Name+".guards.cue")
		if err != nil {
			return nil, fmt.Errorf("guards: %w", err)
		}
		inst.Guard = g
		middleware.Provide(builder.Registry(), g)
		builder.UseFactory("guard", guard.Factory[State]())
	}
	for _, fn := range o.middleware {
		builder.Use(fn)
	}

	storeOpts := []store.Option[State]{
		store.WithDevTools[State](o.bridge),
		store.WithMiddleware(builder),
		store.WithClock[State](o.now),
		store.WithLogger[State](o.logger),
	}
	if s.Location != nil {
		field := s.Location.Field
		storeOpts = append(storeOpts,
			store.WithLocation(func(st State) string {
				loc, _ := st[field].(string)
				return loc
			}),
			store.WithLocationReducer(locationReducer(field)),
		)
	}

	st, err := store.New(initial, RuleSet(s.Rules).Reducer(), storeOpts...)
	if err != nil {
		return nil, err
	}
	inst.Store = st

	if s.Location != nil {
		start := s.Location.Start
		if start == "" {
			start = DefaultStartLocation
		}
		inst.Navigator = location.NewMemory(start)
		if err := st.Init(ctx, inst.Navigator); err != nil {
			st.Dispose()
			return nil, fmt.Errorf("init location: %w", err)
		}
	}

	return inst, nil
}

// Apply performs one step. Dispatch errors are returned as-is so callers
// can compare them with expect_error.
func (i *Instance) Apply(ctx context.Context, step Step) error {
	i.logger.Debug("scenario step", "kind", step.Kind())

	switch step.Kind() {
	case StepDispatch:
		payload, err := normalizeObject(step.Payload)
		if err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		return i.Store.Dispatch(ctx, Action{Type: step.Dispatch, Data: payload})

	case StepReady:
		return i.Bridge.Receive(devtools.Message{Kind: devtools.KindReady})

	case StepTimeTravel:
		entries := i.Store.History()
		idx := *step.TimeTravel
		if idx >= len(entries) {
			return fmt.Errorf("time_travel index %d out of range (history has %d entries)", idx, len(entries))
		}
		payload, err := codec.SerializeJSON(entries[idx].State)
		if err != nil {
			return err
		}
		return i.Bridge.Receive(devtools.Message{Kind: devtools.KindTimeTravel, State: payload})

	case StepReset:
		return i.Bridge.Receive(devtools.Message{Kind: devtools.KindReset})

	case StepNavigate:
		if i.Navigator == nil {
			return fmt.Errorf("navigate: scenario has no navigator")
		}
		i.Navigator.Navigate(step.Navigate)
		return nil

	case StepBack:
		if i.Navigator == nil {
			return fmt.Errorf("back: scenario has no navigator")
		}
		if !i.Navigator.Back() {
			return fmt.Errorf("back: navigator is at the start of its history")
		}
		return nil

	default:
		return fmt.Errorf("step must set exactly one kind")
	}
}

// Location returns the navigator's location, or "" without a navigator.
func (i *Instance) Location() string {
	if i.Navigator == nil {
		return ""
	}
	return i.Navigator.Location()
}

// Close disposes the store. A bridge created by NewInstance is stopped; one
// passed in with WithBridge is left to its owner.
func (i *Instance) Close() {
	i.Store.Dispose()
	if i.ownsBridge {
		i.Bridge.Stop()
	}
}
