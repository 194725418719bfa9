package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"connectify-server/internal/domain/delivery"
	"connectify-server/internal/domain/user"
	"connectify-server/internal/infrastructure/ws"
	"connectify-server/internal/interfaces/httpserver/middlewares"
)

// WSHandler upgrades authenticated requests into hub connections and
// announces presence transitions to the user's friends.
type WSHandler struct {
	hub          *ws.Hub
	users        user.Service
	router       *delivery.Router
	insecureSkip bool
	log          zerolog.Logger
}

// NewWSHandler wires a WSHandler.
func NewWSHandler(hub *ws.Hub, users user.Service, router *delivery.Router, insecureSkip bool, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:          hub,
		users:        users,
		router:       router,
		insecureSkip: insecureSkip,
		log:          log.With().Str("component", "ws-handler").Logger(),
	}
}

// Connect upgrades the request and parks it until the socket closes. The
// socket is push-only: inbound frames are drained and ignored, mutations
// arrive over REST.
func (h *WSHandler) Connect(c *gin.Context) {
	self := middlewares.CurrentUser(c)

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: h.insecureSkip,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", self.PublicID).Msg("websocket upgrade failed")
		return
	}

	client, first := h.hub.Register(self.PublicID, conn)
	if first {
		h.announcePresence(c.Request.Context(), self, true)
	}

	h.readLoop(c.Request.Context(), conn)

	if last := h.hub.Unregister(client); last {
		// The request context is gone once the socket drops.
		h.announcePresence(context.Background(), self, false)
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

func (h *WSHandler) announcePresence(ctx context.Context, self *user.User, online bool) {
	friendIDs, err := h.users.FriendPublicIDs(ctx, self.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", self.PublicID).Msg("failed to resolve presence audience")
		return
	}
	h.router.NotifyUsers(friendIDs, delivery.NewEvent(delivery.EventPresenceChanged, delivery.PresencePayload{
		UserID: self.PublicID,
		Online: online,
	}))
}
