// Account and session HTTP handlers
package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/threadgate/threadgate/pkg/models"
	"github.com/threadgate/threadgate/pkg/service"
)

// AuthHandler handles registration, login and API-key storage.
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// RegisterRoutes registers auth routes. The apikey route must sit behind
// Middleware.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, authed *gin.RouterGroup) {
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	authed.POST("/auth/logout", h.Logout)
	authed.PUT("/auth/apikey", h.SetAPIKey)
}

// Middleware resolves the session token and aborts unauthenticated
// requests.
func (h *AuthHandler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.authService.Authenticate(sessionToken(c))
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// Register creates an account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewAPIError(models.KindValidation, "invalid request format"))
		return
	}

	user, err := h.authService.Register(req.Email, req.Password)
	if err != nil {
		h.logger.Error("registration failed", "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": user.ID, "email": user.Email})
}

// Login opens a session and returns its token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewAPIError(models.KindValidation, "invalid request format"))
		return
	}

	session, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.LoginResponse{
		Token:     session.Token,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	})
}

// Logout closes the current session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(sessionToken(c)); err != nil {
		h.logger.Error("logout failed", "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// SetAPIKey stores the caller's provider API key.
func (h *AuthHandler) SetAPIKey(c *gin.Context) {
	var req models.APIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewAPIError(models.KindValidation, "invalid request format"))
		return
	}

	user := currentUser(c)
	if err := h.authService.SetAPIKey(user.ID, req.APIKey); err != nil {
		h.logger.Error("failed to store api key", "user_id", user.ID, "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "api key stored"})
}

func sessionToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := c.Cookie("threadgate_session"); err == nil {
		return cookie
	}
	return ""
}
