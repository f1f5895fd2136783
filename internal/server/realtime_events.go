package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"senyo/internal/observability"
)

// Request lifecycle event types carried on the live feed.
const (
	EventRequestCreated      = "request_created"
	EventRequestUpdated      = "request_updated"
	EventRequestDeleted      = "request_deleted"
	EventClientProvisioned   = "client_provisioned"
	EventClientDeprovisioned = "client_deprovisioned"
)

type realtimeEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

func encodeEvent(eventType string, data any) (string, bool) {
	payload, err := json.Marshal(realtimeEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		slog.Error("failed to encode realtime event", "event_type", eventType, "error", err)
		return "", false
	}
	return string(payload), true
}

// publishOwnerEvent delivers an event to the owner's live feed. Local
// connections get it directly from the hub when no Redis fan-out exists.
func (s *Server) publishOwnerEvent(ctx context.Context, ownerID uint, eventType string, data any) {
	payload, ok := encodeEvent(eventType, data)
	if !ok {
		return
	}

	observability.RequestEventsTotal.WithLabelValues(eventType).Inc()

	if s.notifier != nil {
		if err := s.notifier.PublishOwner(ctx, ownerID, payload); err != nil {
			slog.Error("failed to publish owner event", "event_type", eventType,
				"owner_id", ownerID, "error", err)
		}
		return
	}
	if s.hub != nil {
		s.hub.BroadcastOwner(ownerID, payload)
	}
}

// publishAdminEvent delivers an event to the operator feed.
func (s *Server) publishAdminEvent(ctx context.Context, eventType string, data any) {
	payload, ok := encodeEvent(eventType, data)
	if !ok {
		return
	}

	observability.RequestEventsTotal.WithLabelValues(eventType).Inc()

	if s.notifier != nil {
		if err := s.notifier.PublishAdmins(ctx, payload); err != nil {
			slog.Error("failed to publish admin event", "event_type", eventType, "error", err)
		}
		return
	}
	if s.hub != nil {
		s.hub.BroadcastAdmins(payload)
	}
}

// publishRequestEvent fans a request lifecycle event out to both the owner's
// feed and the operator feed.
func (s *Server) publishRequestEvent(ctx context.Context, ownerID uint, eventType string, data any) {
	s.publishOwnerEvent(ctx, ownerID, eventType, data)
	s.publishAdminEvent(ctx, eventType, data)
}
