package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"connectify-server/internal/domain/user"
	"connectify-server/internal/infrastructure/auth"
)

const (
	// AuthCookieName is the cookie carrying the session token.
	AuthCookieName = "jwt"
	authUserKey    = "auth_user"
)

// RequireAuth resolves the session token from the auth cookie (or a bearer
// header for non-browser clients) and loads the user into the gin context.
func RequireAuth(tokens *auth.TokenManager, users user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		publicID, err := tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}

		u, err := users.GetByPublicID(c.Request.Context(), publicID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}

		c.Set(authUserKey, u)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(AuthCookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// Browser WebSocket clients cannot set headers on the upgrade request.
	return c.Query("token")
}

// CurrentUser returns the authenticated user placed by RequireAuth.
func CurrentUser(c *gin.Context) *user.User {
	if v, ok := c.Get(authUserKey); ok {
		if u, ok := v.(*user.User); ok {
			return u
		}
	}
	return nil
}
