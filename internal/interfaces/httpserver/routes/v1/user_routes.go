package v1

import (
	"github.com/gin-gonic/gin"

	"connectify-server/internal/interfaces/httpserver/handlers"
)

func registerUserRoutes(group *gin.RouterGroup, h *handlers.UserHandler, requireAuth gin.HandlerFunc) {
	users := group.Group("/users", requireAuth)

	users.GET("", h.Sidebar)
	users.GET("/search", h.Search)

	users.GET("/friends", h.Friends)
	users.GET("/friends/online", h.OnlineFriends)
	users.DELETE("/friends/:userId", h.RemoveFriend)

	users.GET("/friend-requests", h.PendingRequests)
	users.POST("/friend-requests", h.SendFriendRequest)
	users.PUT("/friend-requests/:userId/accept", h.AcceptFriendRequest)
	users.DELETE("/friend-requests/:userId", h.RejectFriendRequest)
}
