// Package ws upgrades websocket connections into the broadcast hub and
// relays debate events between room members.
package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/personarena/backend/internal/realtime"
)

// Handler serves the broadcast endpoint.
type Handler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// New creates the websocket handler over the given hub.
func New(hub *realtime.Hub) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the broadcast endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	member := h.hub.Register(conn)
	defer h.hub.Remove(member)

	log.Printf("[ws] client connected: %s", conn.RemoteAddr())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, conn)

	for {
		var env realtime.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[ws] read error: %v", err)
			}
			log.Printf("[ws] client disconnected: %s", conn.RemoteAddr())
			return
		}

		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		h.handleEnvelope(member, env)
	}
}

func (h *Handler) handleEnvelope(member *realtime.Member, env realtime.Envelope) {
	switch env.Type {
	case realtime.EventJoinDebate:
		if env.SessionID == "" {
			return
		}
		h.hub.Join(member, env.SessionID)
	case realtime.EventDebateMessage:
		if env.SessionID == "" {
			return
		}
		// Relay only: the hub never stores or replays the message.
		h.hub.Broadcast(env.SessionID, env, member)
	default:
		log.Printf("[ws] ignoring unsupported event type: %s", env.Type)
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// WriteControl is safe alongside the hub's relay writes.
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}
