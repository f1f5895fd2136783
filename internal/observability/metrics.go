// Package observability provides metrics and tracing instrumentation.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubscriptionsActive is the gauge of live request-feed subscriptions by view.
	SubscriptionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "portal_subscriptions_active",
		Help: "Number of active request-feed subscriptions by view",
	}, []string{"view"})

	// RequestEventsTotal counts request lifecycle events published to the feed.
	RequestEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_request_events_total",
		Help: "Total request lifecycle events by type",
	}, []string{"event_type"})

	// ConfirmationsTotal counts confirmation protocol outcomes.
	ConfirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_confirmations_total",
		Help: "Confirmation protocol outcomes (confirmed, dismissed, replaced, expired)",
	}, []string{"outcome"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
