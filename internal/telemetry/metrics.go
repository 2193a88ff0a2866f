package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/rewind/internal/devtools"
	"github.com/roach88/rewind/internal/middleware"
	"github.com/roach88/rewind/internal/redux"
)

// Metrics is a Prometheus registry scoped to one process or test.
type Metrics struct {
	registry *prometheus.Registry

	dispatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates a fresh registry with the dispatch instruments.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rewind_dispatch_total",
			Help: "Dispatched actions by label and outcome",
		}, []string{"action", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rewind_dispatch_duration_seconds",
			Help:    "Dispatch duration through the pipeline",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"action"}),
	}
}

// Registry returns the underlying registry, e.g. for promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WatchBridge exports the bridge's counters.
func (m *Metrics) WatchBridge(b *devtools.Bridge) error {
	return m.registry.Register(newBridgeCollector(b))
}

// WatchHistory exports a store's history length under the given store name.
func (m *Metrics) WatchHistory(store string, length func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "rewind_history_entries",
		Help:        "Number of history entries held by the store",
		ConstLabels: prometheus.Labels{"store": store},
	}, func() float64 {
		return float64(length())
	}))
}

// PrometheusMiddleware counts dispatches and observes their duration.
func PrometheusMiddleware[S any](m *Metrics) middleware.Func[S] {
	return func(next middleware.Handler[S]) middleware.Handler[S] {
		return func(ctx context.Context, state S, action redux.Action) (S, error) {
			label := redux.Label(action)
			start := time.Now()

			out, err := next(ctx, state, action)

			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			m.dispatches.WithLabelValues(label, outcome).Inc()
			m.duration.WithLabelValues(label).Observe(time.Since(start).Seconds())
			return out, err
		}
	}
}

// bridgeCollector reads devtools.Stats at scrape time.
type bridgeCollector struct {
	bridge *devtools.Bridge

	ready   *prometheus.Desc
	pending *prometheus.Desc
	sent    *prometheus.Desc
	failed  *prometheus.Desc
	dropped *prometheus.Desc
}

func newBridgeCollector(b *devtools.Bridge) *bridgeCollector {
	return &bridgeCollector{
		bridge:  b,
		ready:   prometheus.NewDesc("rewind_devtools_ready", "1 once the inspector signalled ready", nil, nil),
		pending: prometheus.NewDesc("rewind_devtools_pending_messages", "Messages waiting in the outbox", nil, nil),
		sent:    prometheus.NewDesc("rewind_devtools_sent_total", "Messages delivered to the inspector", nil, nil),
		failed:  prometheus.NewDesc("rewind_devtools_failed_total", "Messages whose delivery failed", nil, nil),
		dropped: prometheus.NewDesc("rewind_devtools_dropped_total", "Messages logged after the bridge stopped", nil, nil),
	}
}

func (c *bridgeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ready
	ch <- c.pending
	ch <- c.sent
	ch <- c.failed
	ch <- c.dropped
}

func (c *bridgeCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.bridge.Stats()

	ready := 0.0
	if s.Ready {
		ready = 1
	}
	ch <- prometheus.MustNewConstMetric(c.ready, prometheus.GaugeValue, ready)
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(s.Pending))
	ch <- prometheus.MustNewConstMetric(c.sent, prometheus.CounterValue, float64(s.Sent))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(s.Failed))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped))
}
