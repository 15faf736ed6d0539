// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gateway"

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeAccepted = "accepted"
)

var (
	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_connections",
		Help:      "Live WebSocket connections",
	})

	GrantsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "grants_total",
		Help:      "Grant requests by grant type and outcome",
	}, []string{"grant_type", "outcome"})

	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "Dispatched actions by action and outcome",
	}, []string{"action", "outcome"})

	ActionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "action_duration_seconds",
		Help:      "Backend round trip per action",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	EventsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_received_total",
		Help:      "Broker messages by outcome",
	}, []string{"outcome"})

	EventDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_deliveries_total",
		Help:      "Per-connection event pushes by outcome",
	}, []string{"outcome"})

	BrokerReconnectAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broker_reconnect_attempts_total",
		Help:      "Broker connection attempts after a failure",
	})

	BrokerConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "broker_connected",
		Help:      "1 while the broker subscription is live",
	})
)

func init() {
	prometheus.MustRegister(
		ActiveConnections,
		GrantsTotal,
		ActionsTotal,
		ActionDuration,
		EventsReceived,
		EventDeliveries,
		BrokerReconnectAttempts,
		BrokerConnected,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
