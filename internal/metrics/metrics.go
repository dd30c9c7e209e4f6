// Package metrics declares the Prometheus collectors exported by the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection results recorded by ConnectionsTotal.
const (
	ResultAccepted        = "accepted"
	ResultUnauthenticated = "unauthenticated"
	ResultHandshakeFailed = "handshake_failed"
	ResultRejected        = "rejected"
)

// Connection Metrics
var (
	// ConnectionsCurrent tracks the number of registry entries.
	ConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_connections_current",
			Help: "Current number of active chat connections",
		},
	)

	// ConnectionsTotal tracks connection attempts by result.
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_connections_total",
			Help: "Total chat connection attempts by result (accepted/unauthenticated/handshake_failed/rejected)",
		},
		[]string{"result"},
	)

	// ConnectionDuration tracks how long connections stay registered.
	ConnectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_connection_duration_seconds",
			Help:    "Chat connection duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		},
	)
)

// Broadcast Metrics
var (
	// BroadcastsTotal counts Broadcast calls.
	BroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_broadcasts_total",
			Help: "Total broadcast operations",
		},
	)

	// BroadcastFanout tracks the number of recipients per broadcast.
	BroadcastFanout = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_broadcast_fanout",
			Help:    "Number of recipients targeted by a broadcast",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	// DeliveryFailuresTotal counts per-recipient delivery failures by reason.
	DeliveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_delivery_failures_total",
			Help: "Per-recipient delivery failures by reason (closed/queue_full/error)",
		},
		[]string{"reason"},
	)

	// MessagesDroppedTotal counts inbound messages discarded by the rate limiter.
	MessagesDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_inbound_messages_dropped_total",
			Help: "Inbound messages discarded because the sender exceeded its rate limit",
		},
	)
)
