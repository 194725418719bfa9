package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"connectify-server/internal/domain/message"
	"connectify-server/internal/infrastructure/metrics"
	"connectify-server/internal/interfaces/httpserver/middlewares"
	"connectify-server/internal/interfaces/httpserver/requests"
	"connectify-server/internal/interfaces/httpserver/responses"
	"connectify-server/internal/utils/platformerrors"
)

// MessageHandler owns the message timeline endpoints.
type MessageHandler struct {
	messages message.Service
	log      zerolog.Logger
}

// NewMessageHandler wires a MessageHandler.
func NewMessageHandler(messages message.Service, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		log:      log.With().Str("component", "message-handler").Logger(),
	}
}

// Send appends a message to a conversation.
func (h *MessageHandler) Send(c *gin.Context) {
	var req requests.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid payload", "message-bind")
		return
	}

	self := middlewares.CurrentUser(c)
	m, err := h.messages.Append(c.Request.Context(), self, c.Param("id"), message.AppendParams{
		Text:  req.Text,
		Image: req.Image,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to send message")
		return
	}

	kind := "text"
	if m.Image != nil {
		kind = "image"
	}
	metrics.RecordMessage(kind)
	c.JSON(http.StatusCreated, m)
}

// List returns the full timeline of a conversation.
func (h *MessageHandler) List(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	msgs, err := h.messages.ListByConversation(c.Request.Context(), self, c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "failed to list messages")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// MarkRead records the caller's read receipt on every unread message of the
// conversation. Safe to replay.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	changed, err := h.messages.MarkRead(c.Request.Context(), self, c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "failed to mark messages read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messageIds": changed})
}

// Delete tombstones one of the caller's own messages.
func (h *MessageHandler) Delete(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	m, err := h.messages.SoftDelete(c.Request.Context(), self, c.Param("messageId"))
	if err != nil {
		responses.HandleError(c, err, "failed to delete message")
		return
	}
	c.JSON(http.StatusOK, m)
}
