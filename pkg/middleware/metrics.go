package middleware

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/bridge"
	"github.com/vango-dev/vango-mixed/pkg/protocol"
	"github.com/vango-dev/vango-mixed/pkg/vdom"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vango_mixed").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for call duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "vango_mixed",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for the bridge.
type metrics struct {
	callsTotal          *prometheus.CounterVec
	callDuration        *prometheus.HistogramVec
	callErrors          *prometheus.CounterVec
	liveBindings        prometheus.Gauge
	wireCalls           *prometheus.CounterVec
	callbackInvocations *prometheus.CounterVec
	connections         prometheus.Gauge
}

// globalMetrics is the singleton metrics instance.
// Created on first call to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bridge_calls_total",
			Help:        "Total number of bridge operations by operation and status",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "status"}),

		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bridge_call_duration_seconds",
			Help:        "Bridge operation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"op"}),

		callErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bridge_call_errors_total",
			Help:        "Total number of failed bridge operations by error category",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "error_type"}),

		liveBindings: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_bindings",
			Help:        "Number of root components currently attached in the other runtime",
			ConstLabels: config.ConstLabels,
		}),

		wireCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "wire_calls_total",
			Help:        "Total number of operations sent to the peer runtime",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "status"}),

		callbackInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "callback_invocations_total",
			Help:        "Total number of marshaled callback invocations received",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "peer_connections",
			Help:        "Number of connected peer runtimes",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus creates middleware that collects Prometheus metrics for
// bridge operations.
//
// Metrics collected:
//   - vango_mixed_bridge_calls_total: Counter of operations by op and status
//   - vango_mixed_bridge_call_duration_seconds: Histogram of operation duration
//   - vango_mixed_bridge_call_errors_total: Counter of failures by error category
//   - vango_mixed_live_bindings: Gauge of attached root components
//   - vango_mixed_wire_calls_total: Counter of operations sent (PrometheusInvoker)
//   - vango_mixed_callback_invocations_total: Counter of callback invocations
//   - vango_mixed_peer_connections: Gauge of connected peers
//
// Example:
//
//	b := middleware.Chain(remote, middleware.Prometheus(middleware.WithNamespace("myapp")))
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return func(next bridge.Bridge) bridge.Bridge {
		live := &liveSet{containers: make(map[vdom.ElementRef]bool)}

		return wrap(next, func(ctx context.Context, call Call, run func(context.Context) error) error {
			op := call.Op.String()
			start := time.Now()

			err := run(ctx)

			m.callDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
			status := "success"
			if err != nil {
				status = "error"
				m.callErrors.WithLabelValues(op, categorizeError(err)).Inc()
			}
			m.callsTotal.WithLabelValues(op, status).Inc()

			switch {
			case call.Op == protocol.OpAddRootComponent && err == nil:
				if live.add(call.Container) {
					m.liveBindings.Inc()
				}
			case call.Op == protocol.OpDisposeRootComponent && (err == nil || bridge.IsDisconnected(err)):
				// A lost peer has already dropped its side of the binding.
				if live.remove(call.Container) {
					m.liveBindings.Dec()
				}
			}
			return err
		})
	}
}

// liveSet makes the gauge idempotent under repeated disposes.
type liveSet struct {
	mu         sync.Mutex
	containers map[vdom.ElementRef]bool
}

func (s *liveSet) add(c vdom.ElementRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.containers[c] {
		return false
	}
	s.containers[c] = true
	return true
}

func (s *liveSet) remove(c vdom.ElementRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.containers[c] {
		return false
	}
	delete(s.containers, c)
	return true
}

// PrometheusInvoker counts operations sent through inv. It records nothing
// until Prometheus has been called.
func PrometheusInvoker(inv bridge.Invoker) bridge.Invoker {
	return &invokerHook{next: inv, fn: func(ctx context.Context, op protocol.Op, run func(context.Context) (any, error)) (any, error) {
		v, err := run(ctx)
		if m := current(); m != nil {
			status := "success"
			if err != nil {
				status = "error"
			}
			m.wireCalls.WithLabelValues(op.String(), status).Inc()
		}
		return v, err
	}}
}

// categorizeError returns a low-cardinality label for err.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	var ve *verrors.VangoError
	if errors.As(err, &ve) && ve.Category != "" {
		return strings.ToLower(string(ve.Category))
	}
	return "internal"
}

func current() *metrics {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	return globalMetrics
}

// =============================================================================
// Metrics Recording Functions
// =============================================================================

// RecordCallbackInvocation records the outcome of a callback invocation.
// Its signature matches callback.Observer.
func RecordCallbackInvocation(_ string, err error) {
	if m := current(); m != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		m.callbackInvocations.WithLabelValues(status).Inc()
	}
}

// RecordConnectionOpen records a peer runtime connecting.
func RecordConnectionOpen() {
	if m := current(); m != nil {
		m.connections.Inc()
	}
}

// RecordConnectionClose records a peer runtime disconnecting.
func RecordConnectionClose() {
	if m := current(); m != nil {
		m.connections.Dec()
	}
}
