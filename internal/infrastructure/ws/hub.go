package ws

import (
	"sync"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"connectify-server/internal/domain/delivery"
	"connectify-server/internal/infrastructure/metrics"
)

// Hub tracks every live socket keyed by user. One user may hold several
// connections (multiple tabs, devices); events go to all of them. The hub
// is the delivery transport and the presence registry at once.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	log     zerolog.Logger
}

// NewHub wires a Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		log:     log.With().Str("component", "ws-hub").Logger(),
	}
}

// Register adds a connection for the user, starts its writer and keepalive
// goroutines, and reports whether this is the user's first live socket.
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, bool) {
	return h.register(newClient(userID, jsonConn{conn: conn}, h.log))
}

func (h *Hub) register(c *Client) (*Client, bool) {
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	first := len(set) == 0
	set[c] = struct{}{}
	h.mu.Unlock()

	metrics.SocketConnections.Inc()
	go c.writeLoop()
	go c.keepAliveLoop()

	h.log.Debug().Str("user_id", c.UserID).Bool("first", first).Msg("socket registered")
	return c, first
}

// Unregister removes the connection and reports whether the user has no
// sockets left.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	last := false
	if set, ok := h.clients[c.UserID]; ok {
		if _, present := set[c]; present {
			delete(set, c)
			metrics.SocketConnections.Dec()
		}
		if len(set) == 0 {
			delete(h.clients, c.UserID)
			last = true
		}
	}
	h.mu.Unlock()

	c.close(websocket.StatusNormalClosure, "")
	h.log.Debug().Str("user_id", c.UserID).Bool("last", last).Msg("socket unregistered")
	return last
}

// Send pushes an event to every socket of the user without blocking. A full
// per-connection queue drops the event for that socket; the client catches
// up from the REST endpoints on its next fetch. Reports whether the user
// had at least one socket.
func (h *Hub) Send(userID string, event delivery.Event) bool {
	h.mu.RLock()
	set := h.clients[userID]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		metrics.RecordEventPush(string(event.Kind), "offline")
		return false
	}

	for _, c := range targets {
		select {
		case c.send <- event:
			metrics.RecordEventPush(string(event.Kind), "queued")
		default:
			metrics.RecordEventPush(string(event.Kind), "dropped")
			h.log.Warn().Str("user_id", userID).Str("event", string(event.Kind)).Msg("socket queue full, event dropped")
		}
	}
	return true
}

// IsOnline reports whether the user has at least one live socket.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// OnlineUserIDs lists every user with a live socket.
func (h *Hub) OnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// ConnectionCount returns the user's live socket count.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
