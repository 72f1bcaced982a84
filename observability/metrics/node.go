package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const nodeMeterName = "devtoken/core"

// Outcomes recorded for node operations.
const (
	OutcomeOK           = "ok"
	OutcomeRejected     = "rejected"
	OutcomeCommitFailed = "commit_failed"
	OutcomeCanceled     = "canceled"
)

// NodeMetrics counts dispatcher operations in Prometheus and mirrors them to
// the OpenTelemetry meter so OTLP exporters see the same traffic.
type NodeMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec

	opCounter metric.Int64Counter
	opLatency metric.Float64Histogram
}

var (
	nodeOnce     sync.Once
	nodeRegistry *NodeMetrics
)

// Node returns the process wide node metrics bound to the default Prometheus
// registerer and the global meter provider.
func Node() *NodeMetrics {
	nodeOnce.Do(func() {
		nodeRegistry = NewNodeMetrics(prometheus.DefaultRegisterer, otel.GetMeterProvider())
	})
	return nodeRegistry
}

// NewNodeMetrics builds node metrics on reg and provider. A nil provider
// records nothing through OpenTelemetry.
func NewNodeMetrics(reg prometheus.Registerer, provider metric.MeterProvider) *NodeMetrics {
	m := &NodeMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devtoken",
			Subsystem: "node",
			Name:      "operations_total",
			Help:      "Dispatcher operations segmented by operation and outcome.",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "devtoken",
			Subsystem: "node",
			Name:      "operation_duration_seconds",
			Help:      "Time spent applying an operation, including the commit.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.latency)
	}
	m.initMeter(provider)
	return m
}

func (m *NodeMetrics) initMeter(provider metric.MeterProvider) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(nodeMeterName)
	counter, err := meter.Int64Counter("devtoken.node.operations",
		metric.WithDescription("Dispatcher operations by operation and outcome."))
	if err != nil {
		meter = noop.NewMeterProvider().Meter(nodeMeterName)
		counter, _ = meter.Int64Counter("devtoken.node.operations")
	}
	latency, err := meter.Float64Histogram("devtoken.node.operation.duration_ms",
		metric.WithDescription("Time spent applying an operation."),
		metric.WithUnit("ms"))
	if err != nil {
		meter = noop.NewMeterProvider().Meter(nodeMeterName)
		latency, _ = meter.Float64Histogram("devtoken.node.operation.duration_ms")
	}
	m.opCounter = counter
	m.opLatency = latency
}

// ObserveOperation records one finished operation.
func (m *NodeMetrics) ObserveOperation(ctx context.Context, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	if ctx == nil {
		ctx = context.Background()
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
	if m.opCounter != nil {
		m.opCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		))
	}
	if m.opLatency != nil {
		m.opLatency.Record(ctx, float64(elapsed)/float64(time.Millisecond),
			metric.WithAttributes(attribute.String("operation", operation)))
	}
}

// OperationCounter exposes the Prometheus counter for one label pair.
func (m *NodeMetrics) OperationCounter(operation, outcome string) prometheus.Counter {
	return m.operations.WithLabelValues(operation, outcome)
}
