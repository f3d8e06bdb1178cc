// Package metrics exposes relay activity as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vovakirdan/meshroom/internal/core"
)

const namespace = "meshroom"

// Metrics holds the relay collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	sessions       prometheus.Gauge
	rooms          prometheus.Gauge
	commands       *prometheus.CounterVec
	joinRejected   *prometheus.CounterVec
	eventsDropped  *prometheus.CounterVec
	signalsDropped prometheus.Counter
	evictions      prometheus.Counter
	rateLimited    prometheus.Counter
}

// New builds and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Connected sessions.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Client commands processed, by kind.",
		}, []string{"kind"}),
		joinRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_rejected_total",
			Help:      "Rejected joins, by error code.",
		}, []string{"code"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Outbound events dropped on a full session queue.",
		}, []string{"event"}),
		signalsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_dropped_total",
			Help:      "Signals addressed to a peer outside the sender's room.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "liveness_evictions_total",
			Help:      "Connections terminated for missing probes.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Inbound messages rejected by the per-connection limiter.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessions,
		m.rooms,
		m.commands,
		m.joinRejected,
		m.eventsDropped,
		m.signalsDropped,
		m.evictions,
		m.rateLimited,
	)
	return m
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionOpened()             { m.sessions.Inc() }
func (m *Metrics) SessionClosed()             { m.sessions.Dec() }
func (m *Metrics) RoomsActive(n int)          { m.rooms.Set(float64(n)) }
func (m *Metrics) CommandHandled(kind string) { m.commands.WithLabelValues(kind).Inc() }
func (m *Metrics) JoinRejected(code string)   { m.joinRejected.WithLabelValues(code).Inc() }
func (m *Metrics) EventDropped(event string)  { m.eventsDropped.WithLabelValues(event).Inc() }
func (m *Metrics) SignalDropped()             { m.signalsDropped.Inc() }
func (m *Metrics) LivenessEvicted()           { m.evictions.Inc() }
func (m *Metrics) RateLimited()               { m.rateLimited.Inc() }

// Ensure Metrics implements core.Recorder
var _ core.Recorder = (*Metrics)(nil)
