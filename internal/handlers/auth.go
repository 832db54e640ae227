package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"chat-rooms-service/internal/auth"
	"chat-rooms-service/internal/middleware"
	"chat-rooms-service/internal/repositories"
	"chat-rooms-service/internal/telemetry"
)

// AuthHandler manages registration, login and logout.
type AuthHandler struct {
	userRepo   repositories.UserRepository
	issuer     *auth.TokenIssuer
	sessions   auth.SessionStore
	sessionTTL time.Duration
	audit      *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(userRepo repositories.UserRepository, issuer *auth.TokenIssuer, sessions auth.SessionStore, sessionTTL time.Duration, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{
		userRepo:   userRepo,
		issuer:     issuer,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		audit:      audit,
	}
}

func (h *AuthHandler) emitAudit(c *gin.Context, eventType, text string, userID int64) {
	h.audit.Emit(c.Request.Context(), telemetry.Event{
		Type:      eventType,
		Level:     "INFO",
		Text:      text,
		RequestID: requestIDFromContext(c),
		UserID:    &userID,
	})
}

// Register creates an account. Passwords are stored as bcrypt hashes
// and never returned.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		FullName string `json:"full_name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process password"})
		return
	}

	user, err := h.userRepo.CreateUser(c.Request.Context(), req.FullName, req.Email, string(hash))
	if err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	h.emitAudit(c, "user_registered", "account created", user.ID)
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login verifies credentials, opens a session and returns an access
// token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "account is deactivated"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, tokenID, err := h.issuer.Issue(user.ID, user.IsAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	if err := h.sessions.Save(c.Request.Context(), tokenID, user.ID, h.sessionTTL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
		return
	}

	h.emitAudit(c, "user_logged_in", "session opened", user.ID)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Logout revokes the caller's session, invalidating the token ahead of
// its expiry.
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenID := c.GetString("tokenID")
	if tokenID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	if err := h.sessions.Revoke(c.Request.Context(), tokenID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke session"})
		return
	}

	h.emitAudit(c, "user_logged_out", "session revoked", c.GetInt64(middleware.UserIDKey))
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}
