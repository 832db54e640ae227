package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"chat-rooms-service/internal/models"
	"chat-rooms-service/internal/repositories"
	"chat-rooms-service/internal/telemetry"
)

// UserHandler manages account endpoints: directory reads, profile
// updates, password changes and the admin moderation actions.
type UserHandler struct {
	userRepo repositories.UserRepository
	audit    *telemetry.AuditEmitter
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
		audit:    audit,
	}
}

func (h *UserHandler) emitAudit(c *gin.Context, eventType, text string, subjectID int64) {
	actorID := c.GetInt64("userID")
	h.audit.Emit(c.Request.Context(), telemetry.Event{
		Type:      eventType,
		Level:     "INFO",
		Text:      text,
		RequestID: requestIDFromContext(c),
		UserID:    &actorID,
		SubjectID: &subjectID,
	})
}

// canManage reports whether the caller may change the given account:
// the account's owner or an app admin.
func canManage(c *gin.Context, userID int64) bool {
	actor := actorFromContext(c)
	return actor.UserID == userID || actor.IsAppAdmin
}

// ListUsers returns the account directory.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userRepo.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUser returns one account.
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateUser applies a partial profile update (name, email). Only the
// account's owner or an app admin may update it.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req struct {
		FullName *string `json:"full_name"`
		Email    *string `json:"email" binding:"omitempty,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.FullName == nil && req.Email == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if !canManage(c, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you can only update your own profile"})
		return
	}

	user, err := h.userRepo.UpdateUser(c.Request.Context(), userID, repositories.UserUpdate{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, repositories.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		}
		return
	}

	h.emitAudit(c, "user_updated", "profile updated", user.ID)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdatePassword replaces an account's password after verifying the old
// one. Only the account's owner or an app admin may change it, and even
// then the old password must match.
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "user not found"})
		return
	}

	if !canManage(c, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you can only change your own password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid old password"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process password"})
		return
	}

	updated, err := h.userRepo.UpdatePassword(c.Request.Context(), userID, string(hash))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update password"})
		return
	}

	h.emitAudit(c, "password_changed", "password updated", updated.ID)
	c.JSON(http.StatusOK, gin.H{"user": updated})
}

// UpdateProfileImage replaces an account's profile image URL. Only the
// account's owner or an app admin may change it.
func (h *UserHandler) UpdateProfileImage(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req struct {
		ProfileImageURL string `json:"profile_image_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !canManage(c, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you can only update your own profile"})
		return
	}

	user, err := h.userRepo.UpdateProfileImage(c.Request.Context(), userID, req.ProfileImageURL)
	if err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "failed to update profile image"})
		return
	}

	h.emitAudit(c, "user_updated", "profile image updated", user.ID)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ActivateUser re-enables a deactivated account. Admin only; the route
// group enforces the flag.
func (h *UserHandler) ActivateUser(c *gin.Context) {
	h.setActive(c, true, "user_activated", "account activated")
}

// DeactivateUser disables an account, blocking future logins. Live
// sessions lapse at their TTL.
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	h.setActive(c, false, "user_deactivated", "account deactivated")
}

func (h *UserHandler) setActive(c *gin.Context, active bool, eventType, text string) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := h.userRepo.SetActive(c.Request.Context(), userID, active)
	if err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "user not found"})
		return
	}

	h.emitAudit(c, eventType, text, user.ID)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// RevokeAdmin strips the app-wide admin flag from an account.
func (h *UserHandler) RevokeAdmin(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := h.userRepo.SetAdmin(c.Request.Context(), userID, false)
	if err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "user not found"})
		return
	}

	h.emitAudit(c, "admin_revoked", "admin access revoked", user.ID)
	c.JSON(http.StatusOK, gin.H{"user": user})
}
