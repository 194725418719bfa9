package v1

import (
	"github.com/gin-gonic/gin"

	"connectify-server/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

// NewRoutes builds the v1 route registrar.
func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{
		handlers: handlerProvider,
	}
}

// Register attaches all v1 routes under the /v1 prefix.
func (r *Routes) Register(engine *gin.Engine, requireAuth gin.HandlerFunc) {
	group := engine.Group("/v1")
	registerAuthRoutes(group, r.handlers.Auth, requireAuth)
	registerUserRoutes(group, r.handlers.User, requireAuth)
	registerConversationRoutes(group, r.handlers.Conversation, r.handlers.Message, requireAuth)
}
