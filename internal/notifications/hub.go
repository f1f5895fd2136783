// Package notifications provides real-time delivery of request lifecycle
// events to portal subscribers.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"senyo/internal/middleware"
	"senyo/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

// Subscription views. Own delivers only events about the subscriber's
// requests; All is the operator feed covering every request. None keeps
// the connection open but delivers nothing.
const (
	ViewOwn  = "own"
	ViewAll  = "all"
	ViewNone = "none"
)

const (
	// Max connections per user
	maxConnsPerUser = 8
	// Max total connections
	maxTotalConns = 10000
)

// Hub maps userID -> connected Clients and routes request events to them
// according to each connection's subscribed view.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	views      map[*Client]string
	totalConns int
	shutdown   chan struct{}
	done       chan struct{}
	presence   *Presence
}

// NewHub creates a new Hub. A Redis client enables cross-process presence;
// pass nothing for a purely local hub.
func NewHub(redisClients ...*redis.Client) *Hub {
	var redisClient *redis.Client
	if len(redisClients) > 0 {
		redisClient = redisClients[0]
	}

	return &Hub{
		conns:    make(map[uint]map[*Client]struct{}),
		views:    make(map[*Client]string),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		presence: NewPresence(redisClient, PresenceConfig{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "request feed" }

// Register a connection for a given userID. New connections start on the
// "own" view; admin connections may switch to "all" via Subscribe.
func (h *Hub) Register(userID uint, conn *websocket.Conn, admin bool) (*Client, error) {
	h.mu.Lock()

	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}

	if len(m) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID, admin)
	client.IncomingHandler = h.handleIncoming

	m[client] = struct{}{}
	h.views[client] = ViewOwn
	h.totalConns++
	h.mu.Unlock()

	middleware.ActiveWebSockets.Inc()
	observability.SubscriptionsActive.WithLabelValues(ViewOwn).Inc()

	if h.presence != nil {
		h.presence.Register(context.Background(), userID)
	}

	return client, nil
}

// UnregisterClient removes the client from the hub.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.conns[client.UserID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			removed = true
		}
		if len(m) == 0 {
			delete(h.conns, client.UserID)
		}
	}
	view := h.views[client]
	delete(h.views, client)
	h.mu.Unlock()

	if removed {
		middleware.ActiveWebSockets.Dec()
		if view == ViewOwn || view == ViewAll {
			observability.SubscriptionsActive.WithLabelValues(view).Dec()
		}
		if h.presence != nil {
			h.presence.Unregister(context.Background(), client.UserID)
		}
	}
}

// Subscribe switches the connection to the given view, replacing whatever
// view it held before. Only admin connections may take the "all" view.
func (h *Hub) Subscribe(client *Client, view string) error {
	if view != ViewOwn && view != ViewAll {
		return fmt.Errorf("unknown view %q", view)
	}
	if view == ViewAll && !client.Admin {
		return errors.New("the full request feed requires an operator session")
	}

	h.mu.Lock()
	prev, ok := h.views[client]
	if !ok {
		h.mu.Unlock()
		return errors.New("connection is not registered")
	}
	h.views[client] = view
	h.mu.Unlock()

	if prev != view {
		if prev == ViewOwn || prev == ViewAll {
			observability.SubscriptionsActive.WithLabelValues(prev).Dec()
		}
		observability.SubscriptionsActive.WithLabelValues(view).Inc()
	}
	return nil
}

// Unsubscribe tears down the connection's view without closing the socket.
// A later subscribe message re-establishes delivery.
func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	prev, ok := h.views[client]
	if ok {
		h.views[client] = ViewNone
	}
	h.mu.Unlock()

	if ok && (prev == ViewOwn || prev == ViewAll) {
		observability.SubscriptionsActive.WithLabelValues(prev).Dec()
	}
}

type inboundMessage struct {
	Type string `json:"type"`
	View string `json:"view"`
}

// handleIncoming processes subscription control messages from the peer.
func (h *Hub) handleIncoming(c *Client, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.TrySend([]byte(`{"type":"error","payload":{"error":"malformed message"}}`))
		return
	}

	switch msg.Type {
	case "subscribe":
		if err := h.Subscribe(c, msg.View); err != nil {
			c.TrySend([]byte(fmt.Sprintf(`{"type":"error","payload":{"error":%q}}`, err.Error())))
			return
		}
		c.TrySend([]byte(fmt.Sprintf(`{"type":"subscribed","payload":{"view":%q}}`, msg.View)))
	case "unsubscribe":
		h.Unsubscribe(c)
		c.TrySend([]byte(`{"type":"unsubscribed"}`))
	case "ping":
		c.TrySend([]byte(`{"type":"pong"}`))
	default:
		c.TrySend([]byte(`{"type":"error","payload":{"error":"unknown message type"}}`))
	}
}

// BroadcastOwner sends message to the owner's connections holding the "own" view.
func (h *Hub) BroadcastOwner(ownerID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.conns[ownerID]; ok {
		data := []byte(message)
		for c := range clients {
			if h.views[c] == ViewOwn {
				c.TrySend(data)
			}
		}
	}
}

// BroadcastAdmins sends message to every connection holding the "all" view.
func (h *Hub) BroadcastAdmins(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for _, clients := range h.conns {
		for c := range clients {
			if h.views[c] == ViewAll {
				c.TrySend(data)
			}
		}
	}
}

// IsOnline reports whether a user currently has at least one active connection.
func (h *Hub) IsOnline(userID uint) bool {
	if h.presence != nil {
		return h.presence.IsOnline(context.Background(), userID)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients, ok := h.conns[userID]
	return ok && len(clients) > 0
}

// CloseUser tears down every connection the user holds. Called on logout
// before the session token is blacklisted so no event outlives the session.
func (h *Hub) CloseUser(userID uint) {
	h.mu.Lock()
	clients := make([]*Client, 0)
	if m, ok := h.conns[userID]; ok {
		for c := range m {
			clients = append(clients, c)
		}
	}
	h.mu.Unlock()

	for _, c := range clients {
		if c.Conn != nil {
			_ = c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Session ended"))
			_ = c.Conn.Close()
		}
		h.UnregisterClient(c)
	}
}

// StartWiring connects the Notifier to this hub: it subscribes to the Redis
// request-event channels and forwards payloads to matching connections.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if channel == adminChannel {
			h.BroadcastAdmins(payload)
			return
		}
		if !strings.HasPrefix(channel, ownerChannelPrefix) {
			log.Printf("invalid request event channel: %s", channel)
			return
		}
		// channel form: requests:user:<id>
		var ownerID uint
		_, err := fmt.Sscanf(channel, ownerChannelPrefix+"%d", &ownerID)
		if err != nil {
			log.Printf("invalid request event channel: %s", channel)
			return
		}
		h.BroadcastOwner(ownerID, payload)
	})
}

// Shutdown gracefully closes all websocket connections
func (h *Hub) Shutdown(_ context.Context) error {
	close(h.shutdown)

	if h.presence != nil {
		h.presence.Stop()
	}

	h.mu.Lock()
	for userID, userConns := range h.conns {
		for client := range userConns {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				log.Printf("failed to write close message for user %d: %v", userID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for user %d: %v", userID, err)
			}
		}
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.views = make(map[*Client]string)
	h.mu.Unlock()

	close(h.done)

	return nil
}
