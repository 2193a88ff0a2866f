package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/rewind/internal/devtools"
	"github.com/roach88/rewind/internal/middleware"
	"github.com/roach88/rewind/internal/redux"
)

type Increment struct{}

func counter(_ context.Context, n int, a redux.Action) (int, error) {
	if _, ok := a.(Increment); ok {
		return n + 1, nil
	}
	return n, nil
}

func failing(_ context.Context, n int, _ redux.Action) (int, error) {
	return n, redux.NewInvalidArgument("state is not initialized")
}

func newTestTracing(t *testing.T) (*Tracing, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	tr, err := New(WithTracerProvider(tp), WithMeterProvider(mp))
	require.NoError(t, err)
	return tr, exporter, reader
}

func TestNew_DefaultProviders(t *testing.T) {
	tr, err := New()
	require.NoError(t, err)
	assert.NotNil(t, tr.tracer)
	assert.NotNil(t, tr.meter)
}

func TestMiddleware_SpanPerDispatch(t *testing.T) {
	tr, exporter, _ := newTestTracing(t)

	h, err := middleware.NewBuilder[int](nil).Use(Middleware[int](tr)).Build(counter)
	require.NoError(t, err)

	out, err := h(context.Background(), 0, Increment{})
	require.NoError(t, err)
	assert.Equal(t, 1, out)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "dispatch: Increment", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String("action.label", "Increment"))
}

func TestMiddleware_RecordsErrors(t *testing.T) {
	tr, exporter, reader := newTestTracing(t)

	h, err := middleware.NewBuilder[int](nil).Use(Middleware[int](tr)).Build(failing)
	require.NoError(t, err)

	_, err = h(context.Background(), 0, Increment{})
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.NotEmpty(t, spans[0].Events, "error recorded as span event")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					found[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), found["rewind.dispatch.count"])
	assert.Equal(t, int64(1), found["rewind.dispatch.errors"])
}

func TestFactory_ResolvesTracingFromRegistry(t *testing.T) {
	tr, exporter, _ := newTestTracing(t)

	reg := middleware.NewRegistry()
	middleware.Provide(reg, tr)

	h, err := middleware.NewBuilder[int](reg).UseFactory("tracing", Factory[int]()).Build(counter)
	require.NoError(t, err)

	_, err = h(context.Background(), 0, Increment{})
	require.NoError(t, err)
	assert.Len(t, exporter.GetSpans(), 1)
}

func TestFactory_MissingTracing(t *testing.T) {
	_, err := middleware.NewBuilder[int](nil).UseFactory("tracing", Factory[int]()).Build(counter)
	require.Error(t, err)
	assert.True(t, redux.IsMissingDependency(err))
	assert.Contains(t, err.Error(), "*telemetry.Tracing")
}

func TestPrometheusMiddleware_CountsOutcomes(t *testing.T) {
	m := NewMetrics()

	ok, err := middleware.NewBuilder[int](nil).Use(PrometheusMiddleware[int](m)).Build(counter)
	require.NoError(t, err)
	bad, err := middleware.NewBuilder[int](nil).Use(PrometheusMiddleware[int](m)).Build(failing)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := ok(context.Background(), i, Increment{})
		require.NoError(t, err)
	}
	_, err = bad(context.Background(), 0, Increment{})
	require.Error(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.dispatches.WithLabelValues("Increment", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("Increment", "error")))
}

func gather(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestMetrics_WatchBridgeAndHistory(t *testing.T) {
	m := NewMetrics()
	b := devtools.New()
	require.NoError(t, m.WatchBridge(b))

	length := 4
	require.NoError(t, m.WatchHistory("counter", func() int { return length }))

	b.Log("initial", "0")
	b.Log("A", "1")

	families := gather(t, m)
	assert.Equal(t, 0.0, families["rewind_devtools_ready"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 2.0, families["rewind_devtools_pending_messages"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 4.0, families["rewind_history_entries"].GetMetric()[0].GetGauge().GetValue())

	b.Ready()
	require.NoError(t, b.Flush(context.Background(), devtools.TransportFunc(func(context.Context, devtools.Message) error {
		return errors.New("offline")
	})))
	length = 5

	families = gather(t, m)
	assert.Equal(t, 1.0, families["rewind_devtools_ready"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 2.0, families["rewind_devtools_failed_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 5.0, families["rewind_history_entries"].GetMetric()[0].GetGauge().GetValue())

	assert.Error(t, m.WatchBridge(b), "duplicate registration is rejected")
}
