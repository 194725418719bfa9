package v1

import (
	"github.com/gin-gonic/gin"

	"connectify-server/internal/interfaces/httpserver/handlers"
)

func registerConversationRoutes(group *gin.RouterGroup, ch *handlers.ConversationHandler, mh *handlers.MessageHandler, requireAuth gin.HandlerFunc) {
	conversations := group.Group("/conversations", requireAuth)

	conversations.GET("", ch.List)
	conversations.POST("/direct", ch.OpenDirect)
	conversations.POST("/group", ch.CreateGroup)
	conversations.GET("/:id", ch.Get)
	conversations.PUT("/:id", ch.UpdateGroup)
	conversations.PUT("/:id/participants", ch.AddParticipant)
	conversations.DELETE("/:id/participants", ch.RemoveParticipant)
	conversations.POST("/:id/leave", ch.Leave)

	conversations.GET("/:id/messages", mh.List)
	conversations.POST("/:id/messages", mh.Send)
	conversations.PUT("/:id/messages/read", mh.MarkRead)

	messages := group.Group("/messages", requireAuth)
	messages.DELETE("/:messageId", mh.Delete)
}
