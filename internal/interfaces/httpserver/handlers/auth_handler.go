package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"connectify-server/internal/domain/user"
	"connectify-server/internal/infrastructure/auth"
	"connectify-server/internal/interfaces/httpserver/middlewares"
	"connectify-server/internal/interfaces/httpserver/requests"
	"connectify-server/internal/interfaces/httpserver/responses"
	"connectify-server/internal/utils/platformerrors"
)

// AuthHandler owns signup, login and account credential endpoints.
type AuthHandler struct {
	users        user.Service
	tokens       *auth.TokenManager
	cookieSecure bool
	log          zerolog.Logger
}

// NewAuthHandler wires an AuthHandler.
func NewAuthHandler(users user.Service, tokens *auth.TokenManager, cookieSecure bool, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		users:        users,
		tokens:       tokens,
		cookieSecure: cookieSecure,
		log:          log.With().Str("component", "auth-handler").Logger(),
	}
}

// Signup registers an account and opens a session.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req requests.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid signup payload", "signup-bind")
		return
	}

	u, err := h.users.Signup(c.Request.Context(), user.SignupParams{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		responses.HandleError(c, err, "signup failed")
		return
	}

	if err := h.openSession(c, u); err != nil {
		responses.HandleError(c, err, "signup failed")
		return
	}
	c.JSON(http.StatusCreated, responses.ProfileFromDomain(u))
}

// Login checks credentials and opens a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req requests.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid login payload", "login-bind")
		return
	}

	result, err := h.users.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		responses.HandleError(c, err, "login failed")
		return
	}

	if err := h.openSession(c, result.User); err != nil {
		responses.HandleError(c, err, "login failed")
		return
	}
	c.JSON(http.StatusOK, responses.ProfileFromDomain(result.User))
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Check returns the authenticated user's profile; the auth middleware does
// the actual session validation.
func (h *AuthHandler) Check(c *gin.Context) {
	u := middlewares.CurrentUser(c)
	c.JSON(http.StatusOK, responses.ProfileFromDomain(u))
}

// UpdateProfile mutates the caller's name, username or avatar.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req requests.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid profile payload", "profile-bind")
		return
	}

	self := middlewares.CurrentUser(c)
	u, err := h.users.UpdateProfile(c.Request.Context(), self.ID, user.UpdateProfileParams{
		FullName:   req.FullName,
		Username:   req.Username,
		ProfilePic: req.ProfilePic,
	})
	if err != nil {
		responses.HandleError(c, err, "profile update failed")
		return
	}
	c.JSON(http.StatusOK, responses.ProfileFromDomain(u))
}

// ForgotPassword starts the reset flow. The response is the same whether
// or not the address exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req requests.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid payload", "forgot-bind")
		return
	}

	if err := h.users.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		responses.HandleError(c, err, "password reset failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset email is on its way"})
}

// ResetPassword completes the reset flow with the emailed token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req requests.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid payload", "reset-bind")
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		responses.HandleError(c, err, "password reset failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func (h *AuthHandler) openSession(c *gin.Context, u *user.User) error {
	token, err := h.tokens.Issue(u.PublicID)
	if err != nil {
		return platformerrors.NewError(c.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeInternal,
			"failed to issue session token", err, "session-issue-failed")
	}
	h.setCookie(c, token, int(h.tokens.TTL().Seconds()))
	return nil
}

func (h *AuthHandler) setCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middlewares.AuthCookieName, token, maxAge, "/", "", h.cookieSecure, true)
}
