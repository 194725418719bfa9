package v1

import (
	"github.com/gin-gonic/gin"

	"connectify-server/internal/interfaces/httpserver/handlers"
)

func registerAuthRoutes(group *gin.RouterGroup, h *handlers.AuthHandler, requireAuth gin.HandlerFunc) {
	auth := group.Group("/auth")

	auth.POST("/signup", h.Signup)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)
	auth.POST("/forgot-password", h.ForgotPassword)
	auth.POST("/reset-password/:token", h.ResetPassword)

	auth.GET("/check", requireAuth, h.Check)
	auth.PUT("/profile", requireAuth, h.UpdateProfile)
}
