package observability

import (
	"math/big"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	transfers *prometheus.CounterVec
	supply    *prometheus.CounterVec
	published *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking token ledger events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "devtoken",
				Subsystem: "events",
				Name:      "transfers_total",
				Help:      "Count of token transfers segmented by kind.",
			}, []string{"kind"}),
			supply: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "devtoken",
				Subsystem: "events",
				Name:      "supply_changes_total",
				Help:      "Token supply changes in base units segmented by direction and reason (lossy above 2^53).",
			}, []string{"direction", "reason"}),
			published: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "devtoken",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Committed events published to subscribers segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.transfers, eventRegistry.supply, eventRegistry.published)
	})
	return eventRegistry
}

// RecordTransfer increments the transfer counter for the supplied kind.
func (m *eventMetrics) RecordTransfer(kind string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(kind)
	if normalized == "" {
		normalized = "unknown"
	}
	m.transfers.WithLabelValues(normalized).Inc()
}

// RecordSupplyChange adds amount to the mint or burn counter. An empty reason
// is recorded as "admin".
func (m *eventMetrics) RecordSupplyChange(direction, reason string, amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	if reason == "" {
		reason = "admin"
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	m.supply.WithLabelValues(direction, reason).Add(f)
}

// RecordPublished counts an event delivered after commit.
func (m *eventMetrics) RecordPublished(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.published.WithLabelValues(eventType).Inc()
}
