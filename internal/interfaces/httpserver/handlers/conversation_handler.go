package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"connectify-server/internal/domain/conversation"
	"connectify-server/internal/interfaces/httpserver/middlewares"
	"connectify-server/internal/interfaces/httpserver/requests"
	"connectify-server/internal/interfaces/httpserver/responses"
	"connectify-server/internal/utils/platformerrors"
)

// ConversationHandler owns thread lifecycle and membership endpoints.
type ConversationHandler struct {
	conversations conversation.Service
	log           zerolog.Logger
}

// NewConversationHandler wires a ConversationHandler.
func NewConversationHandler(conversations conversation.Service, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		log:           log.With().Str("component", "conversation-handler").Logger(),
	}
}

// OpenDirect finds or creates the direct thread with another user.
func (h *ConversationHandler) OpenDirect(c *gin.Context) {
	var req requests.DirectConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid payload", "direct-bind")
		return
	}

	self := middlewares.CurrentUser(c)
	conv, err := h.conversations.FindOrCreateDirect(c.Request.Context(), self, req.UserID)
	if err != nil {
		responses.HandleError(c, err, "failed to open conversation")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// CreateGroup creates a named group thread.
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	var req requests.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid payload", "group-bind")
		return
	}

	self := middlewares.CurrentUser(c)
	conv, err := h.conversations.CreateGroup(c.Request.Context(), self, req.GroupName, req.Participants)
	if err != nil {
		responses.HandleError(c, err, "failed to create group")
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// List returns the caller's conversations, newest activity first.
func (h *ConversationHandler) List(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	convs, err := h.conversations.ListForUser(c.Request.Context(), self)
	if err != nil {
		responses.HandleError(c, err, "failed to list conversations")
		return
	}
	c.JSON(http.StatusOK, convs)
}

// Get returns one conversation the caller belongs to.
func (h *ConversationHandler) Get(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	conv, err := h.conversations.GetForUser(c.Request.Context(), self, c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "failed to load conversation")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// UpdateGroup renames a group or swaps its icon (admin only).
func (h *ConversationHandler) UpdateGroup(c *gin.Context) {
	var req requests.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid payload", "group-update-bind")
		return
	}

	self := middlewares.CurrentUser(c)
	conv, err := h.conversations.UpdateGroup(c.Request.Context(), self, c.Param("id"), conversation.UpdateGroupParams{
		GroupName: req.GroupName,
		GroupIcon: req.GroupIcon,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to update group")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// AddParticipant adds a member to a group (admin only).
func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	var req requests.ParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid payload", "participant-add-bind")
		return
	}

	self := middlewares.CurrentUser(c)
	conv, err := h.conversations.AddParticipant(c.Request.Context(), self, c.Param("id"), req.UserID)
	if err != nil {
		responses.HandleError(c, err, "failed to add participant")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// RemoveParticipant removes a member from a group (admin only; never the
// admin themselves).
func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	var req requests.ParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid payload", "participant-remove-bind")
		return
	}

	self := middlewares.CurrentUser(c)
	conv, err := h.conversations.RemoveParticipant(c.Request.Context(), self, c.Param("id"), req.UserID)
	if err != nil {
		responses.HandleError(c, err, "failed to remove participant")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Leave removes the caller from a group.
func (h *ConversationHandler) Leave(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	if err := h.conversations.LeaveGroup(c.Request.Context(), self, c.Param("id")); err != nil {
		responses.HandleError(c, err, "failed to leave group")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left the group"})
}
