package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ephemeral_chat"

// Metrics groups the counters updated by the services and the hub.
// It is built against an injected registerer so tests can use a fresh registry.
type Metrics struct {
	MessagesSent      *prometheus.CounterVec
	MessagesRecalled  prometheus.Counter
	MessagesExpired   prometheus.Counter
	CleanupSweeps     *prometheus.CounterVec
	CompactionRemoved prometheus.Counter
	BroadcastEvents   *prometheus.CounterVec
	BroadcastDropped  prometheus.Counter
	ConnectedClients  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_sent_total",
				Help:      "Messages persisted, by conversation kind and message kind",
			},
			[]string{"conversation_kind", "kind"},
		),
		MessagesRecalled: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_recalled_total",
				Help:      "Messages recalled by their sender or a group admin",
			},
		),
		MessagesExpired: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_expired_total",
				Help:      "Messages hard-deleted by the cleanup sweep",
			},
		),
		CleanupSweeps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cleanup_sweeps_total",
				Help:      "Cleanup sweeps, by result",
			},
			[]string{"result"},
		),
		CompactionRemoved: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compaction_removed_total",
				Help:      "Dangling conversation list entries removed",
			},
		),
		BroadcastEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcast_events_total",
				Help:      "Events accepted by the hub, by event name",
			},
			[]string{"event"},
		),
		BroadcastDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcast_dropped_total",
				Help:      "Events or deliveries dropped because a queue was full or a sink timed out",
			},
		),
		ConnectedClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connected_clients",
				Help:      "Clients currently attached to the hub",
			},
		),
	}
}

// NopMetrics returns metrics registered nowhere, for tools and tests that do not scrape.
func NopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
