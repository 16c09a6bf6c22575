package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muurk/empirlink/internal/protocol"
	"github.com/muurk/empirlink/internal/session"
	"github.com/muurk/empirlink/internal/signals"
)

const namespace = "empirlink"

// SessionEvents is the event surface of session.Session.
type SessionEvents interface {
	OnOpen(fn func()) func()
	OnClose(fn func(session.CloseEvent)) func()
	OnError(fn func(error)) func()
	OnMessage(fn func(protocol.Envelope)) func()
}

// ChangeSource is the change feed of signals.Registry.
type ChangeSource interface {
	OnChange(fn func(signals.Change)) func()
}

// Collector holds the Prometheus collectors on a dedicated registry.
type Collector struct {
	ConnectionsOpened prometheus.Counter
	ConnectionsClosed *prometheus.CounterVec
	ConnectionErrors  prometheus.Counter
	Connected         prometheus.Gauge
	MessagesReceived  *prometheus.CounterVec
	SignalUpdates     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Collector and registers its metrics.
func New() *Collector {
	c := &Collector{
		ConnectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_opened_total",
			Help:      "Total number of websocket connections opened",
		}),
		ConnectionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_closed_total",
			Help:      "Total number of websocket connections closed, by close code",
		}, []string{"code"}),
		ConnectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_errors_total",
			Help:      "Total number of transport errors",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "Whether the session is open (1) or not (0)",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of envelopes received, by message type",
		}, []string{"type"}),
		SignalUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signal_updates_total",
			Help:      "Total number of signal state updates, by state kind",
		}, []string{"kind"}),
		registry: prometheus.NewRegistry(),
	}

	c.registry.MustRegister(
		c.ConnectionsOpened,
		c.ConnectionsClosed,
		c.ConnectionErrors,
		c.Connected,
		c.MessagesReceived,
		c.SignalUpdates,
	)
	return c
}

// Registry returns the dedicated Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Attach subscribes the collector to a session and a registry. Either may be
// nil. The returned function detaches every subscription.
func (c *Collector) Attach(sess SessionEvents, reg ChangeSource) func() {
	var unsubs []func()

	if sess != nil {
		unsubs = append(unsubs,
			sess.OnOpen(func() {
				c.ConnectionsOpened.Inc()
				c.Connected.Set(1)
			}),
			sess.OnClose(func(evt session.CloseEvent) {
				c.ConnectionsClosed.WithLabelValues(closeCodeLabel(evt.Code)).Inc()
				c.Connected.Set(0)
			}),
			sess.OnError(func(error) {
				c.ConnectionErrors.Inc()
			}),
			sess.OnMessage(func(env protocol.Envelope) {
				c.MessagesReceived.WithLabelValues(protocol.MessageTypeName(env.Type)).Inc()
			}),
		)
	}

	if reg != nil {
		unsubs = append(unsubs, reg.OnChange(func(ch signals.Change) {
			c.SignalUpdates.WithLabelValues(ch.State.Kind()).Inc()
		}))
	}

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Handler serves the collector's registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func closeCodeLabel(code int) string {
	switch code {
	case session.CloseNormal:
		return "normal"
	case session.CloseAbnormal:
		return "abnormal"
	default:
		return "other"
	}
}
