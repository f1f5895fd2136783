package server

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"senyo/internal/cache"
	"senyo/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	ticketRoleClient = "client"
	ticketRoleAdmin  = "admin"

	// How long a redeemed ticket stays in the in-process cache. The Fiber
	// upgrade handshake re-runs the auth middleware after the ticket has
	// already been taken from Redis, so the entry must outlive the handshake
	// but not much more.
	consumedTicketWindow = 15 * time.Second
)

type consumedTicketEntry struct {
	userID    uint
	admin     bool
	expiresAt time.Time
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue a single-use WebSocket ticket
// @Description Mints a short-lived ticket bound to the current session; pass it as ?ticket= on the WebSocket URL
// @Tags websocket
// @Produce json
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 401 {object} object{error=string}
// @Failure 503 {object} object{error=string}
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(fmt.Errorf("live updates unavailable")))
	}

	userID := c.Locals("userID").(uint)
	role := ticketRoleClient
	if admin, _ := c.Locals("isAdmin").(bool); admin {
		role = ticketRoleAdmin
	}

	ticket := uuid.New().String()
	value := fmt.Sprintf("%d|%s", userID, role)
	if err := s.redis.Set(c.Context(), cache.WSTicketKey(ticket), value, cache.WSTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(cache.WSTicketTTL.Seconds()),
	})
}

// redeemWSTicket exchanges a ticket for the identity it was minted with.
// The Redis key is taken atomically with GETDEL so a ticket authenticates at
// most one connection; the value is cached in-process because the upgrade
// handshake hits the auth middleware more than once for the same ticket.
func (s *Server) redeemWSTicket(ctx context.Context, ticket string) (uint, bool, bool) {
	now := time.Now()

	s.consumedTicketsMu.Lock()
	for t, e := range s.consumedTickets {
		if now.After(e.expiresAt) {
			delete(s.consumedTickets, t)
		}
	}
	if e, ok := s.consumedTickets[ticket]; ok {
		s.consumedTicketsMu.Unlock()
		return e.userID, e.admin, true
	}
	s.consumedTicketsMu.Unlock()

	value, err := s.redis.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if err != nil || value == "" {
		return 0, false, false
	}

	idPart, role, found := strings.Cut(value, "|")
	if !found {
		return 0, false, false
	}
	userID, err := strconv.ParseUint(idPart, 10, 32)
	if err != nil {
		return 0, false, false
	}
	admin := role == ticketRoleAdmin

	s.consumedTicketsMu.Lock()
	s.consumedTickets[ticket] = consumedTicketEntry{
		userID:    uint(userID),
		admin:     admin,
		expiresAt: now.Add(consumedTicketWindow),
	}
	s.consumedTicketsMu.Unlock()

	return uint(userID), admin, true
}

// consumeWSTicket drops a redeemed ticket from the in-process cache once the
// connection it authenticated has closed.
func (s *Server) consumeWSTicket(ticket any) {
	t, ok := ticket.(string)
	if !ok || t == "" {
		return
	}
	s.consumedTicketsMu.Lock()
	delete(s.consumedTickets, t)
	s.consumedTicketsMu.Unlock()
}

// WebsocketHandler upgrades the connection and attaches it to the hub.
// Every connection starts on the "own" view; admins switch views with a
// subscribe message.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthorized"))
			conn.Close()
			return
		}
		admin, _ := conn.Locals("isAdmin").(bool)
		ticket := conn.Locals("wsTicket")
		defer s.consumeWSTicket(ticket)

		client, err := s.hub.Register(userID, conn, admin)
		if err != nil {
			slog.Warn("websocket registration refused", "user_id", userID, "error", err)
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "Connection limit reached"))
			conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
