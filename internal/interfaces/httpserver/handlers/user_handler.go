package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"connectify-server/internal/domain/presence"
	"connectify-server/internal/domain/user"
	"connectify-server/internal/interfaces/httpserver/middlewares"
	"connectify-server/internal/interfaces/httpserver/requests"
	"connectify-server/internal/interfaces/httpserver/responses"
	"connectify-server/internal/utils/platformerrors"
)

// UserHandler owns user discovery, presence and friendship endpoints.
type UserHandler struct {
	users    user.Service
	registry presence.Registry
	log      zerolog.Logger
}

// NewUserHandler wires a UserHandler.
func NewUserHandler(users user.Service, registry presence.Registry, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:    users,
		registry: registry,
		log:      log.With().Str("component", "user-handler").Logger(),
	}
}

// Sidebar lists every other user for the new-chat picker.
func (h *UserHandler) Sidebar(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	users, err := h.users.SidebarUsers(c.Request.Context(), self.ID)
	if err != nil {
		responses.HandleError(c, err, "failed to list users")
		return
	}
	c.JSON(http.StatusOK, users)
}

// Search finds users by username substring, annotated with the caller's
// relationship to each hit.
func (h *UserHandler) Search(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	results, err := h.users.SearchUsers(c.Request.Context(), self, c.Query("q"))
	if err != nil {
		responses.HandleError(c, err, "search failed")
		return
	}
	c.JSON(http.StatusOK, results)
}

// OnlineFriends lists the caller's friends who hold a live socket.
func (h *UserHandler) OnlineFriends(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	friendIDs, err := h.users.FriendPublicIDs(c.Request.Context(), self.ID)
	if err != nil {
		responses.HandleError(c, err, "failed to list online friends")
		return
	}

	online := make([]string, 0, len(friendIDs))
	for _, id := range friendIDs {
		if h.registry.IsOnline(id) {
			online = append(online, id)
		}
	}
	c.JSON(http.StatusOK, gin.H{"online": online})
}

// SendFriendRequest creates a pending request towards another user.
func (h *UserHandler) SendFriendRequest(c *gin.Context) {
	var req requests.FriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid payload", "friend-request-bind")
		return
	}

	self := middlewares.CurrentUser(c)
	if err := h.users.SendFriendRequest(c.Request.Context(), self, req.UserID); err != nil {
		responses.HandleError(c, err, "friend request failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "friend request sent"})
}

// AcceptFriendRequest turns a pending request into a friendship.
func (h *UserHandler) AcceptFriendRequest(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	if err := h.users.AcceptFriendRequest(c.Request.Context(), self, c.Param("userId")); err != nil {
		responses.HandleError(c, err, "accept failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend request accepted"})
}

// RejectFriendRequest drops a pending request.
func (h *UserHandler) RejectFriendRequest(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	if err := h.users.RejectFriendRequest(c.Request.Context(), self, c.Param("userId")); err != nil {
		responses.HandleError(c, err, "reject failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend request rejected"})
}

// RemoveFriend deletes a friendship from both sides at once.
func (h *UserHandler) RemoveFriend(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	if err := h.users.RemoveFriend(c.Request.Context(), self, c.Param("userId")); err != nil {
		responses.HandleError(c, err, "remove failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend removed"})
}

// Friends lists the caller's friends.
func (h *UserHandler) Friends(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	friends, err := h.users.ListFriends(c.Request.Context(), self.ID)
	if err != nil {
		responses.HandleError(c, err, "failed to list friends")
		return
	}
	c.JSON(http.StatusOK, friends)
}

// PendingRequests lists who is waiting on the caller's answer.
func (h *UserHandler) PendingRequests(c *gin.Context) {
	self := middlewares.CurrentUser(c)
	pending, err := h.users.ListPendingRequests(c.Request.Context(), self.ID)
	if err != nil {
		responses.HandleError(c, err, "failed to list friend requests")
		return
	}
	c.JSON(http.StatusOK, pending)
}
