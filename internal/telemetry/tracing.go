package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/rewind/internal/middleware"
	"github.com/roach88/rewind/internal/redux"
)

const instrumentationName = "github.com/roach88/rewind"

// Tracing holds the OpenTelemetry instruments used by the dispatch
// middleware.
type Tracing struct {
	tracer trace.Tracer
	meter  metric.Meter

	dispatchCounter  metric.Int64Counter
	dispatchDuration metric.Float64Histogram
	dispatchErrors   metric.Int64Counter
}

// Option configures Tracing.
type Option func(*Tracing)

// WithTracerProvider sets a custom tracer provider
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(t *Tracing) {
		t.tracer = provider.Tracer(instrumentationName)
	}
}

// WithMeterProvider sets a custom meter provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(t *Tracing) {
		t.meter = provider.Meter(instrumentationName)
	}
}

// New creates Tracing on the global providers unless overridden.
func New(opts ...Option) (*Tracing, error) {
	t := &Tracing{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(t)
	}

	var err error

	t.dispatchCounter, err = t.meter.Int64Counter(
		"rewind.dispatch.count",
		metric.WithDescription("Number of dispatched actions"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, err
	}

	t.dispatchDuration, err = t.meter.Float64Histogram(
		"rewind.dispatch.duration",
		metric.WithDescription("Dispatch duration through the pipeline"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	t.dispatchErrors, err = t.meter.Int64Counter(
		"rewind.dispatch.errors",
		metric.WithDescription("Number of failed dispatches"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// start opens the dispatch span and counts the action.
func (t *Tracing) start(ctx context.Context, label string) (context.Context, trace.Span) {
	attrs := attribute.String("action.label", label)
	ctx, span := t.tracer.Start(ctx, "dispatch: "+label, trace.WithAttributes(attrs))
	t.dispatchCounter.Add(ctx, 1, metric.WithAttributes(attrs))
	return ctx, span
}

// finish records the outcome and ends the span.
func (t *Tracing) finish(ctx context.Context, span trace.Span, label string, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("action.label", label))
	t.dispatchDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.dispatchErrors.Add(ctx, 1, attrs)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Middleware traces every dispatch passing through it. Register it first
// so the span covers the whole pipeline.
func Middleware[S any](t *Tracing) middleware.Func[S] {
	return middleware.Adapt[S](invoker[S](t))
}

// Factory returns a typed middleware factory that resolves *Tracing from
// the builder's registry.
func Factory[S any]() middleware.Factory[S] {
	return func(r *middleware.Registry) (middleware.Middleware[S], error) {
		t, err := middleware.Resolve[*Tracing](r, "telemetry.Tracing")
		if err != nil {
			return nil, err
		}
		return invoker[S](t), nil
	}
}

func invoker[S any](t *Tracing) middleware.Inline[S] {
	return func(ctx context.Context, state S, action redux.Action, next middleware.Handler[S]) (S, error) {
		label := redux.Label(action)
		start := time.Now()

		ctx, span := t.start(ctx, label)
		out, err := next(ctx, state, action)
		t.finish(ctx, span, label, time.Since(start), err)
		return out, err
	}
}
