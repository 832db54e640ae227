package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-rooms-service/internal/authz"
	"chat-rooms-service/internal/models"
	"chat-rooms-service/internal/repositories"
	"chat-rooms-service/internal/telemetry"
)

// RoomHandler manages room endpoints: creation, reads, partial
// updates, membership and the per-user room flags.
type RoomHandler struct {
	roomRepo repositories.RoomRepository
	userRepo repositories.UserRepository
	guard    *authz.Guard
	audit    *telemetry.AuditEmitter
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(roomRepo repositories.RoomRepository, userRepo repositories.UserRepository, guard *authz.Guard, audit *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{
		roomRepo: roomRepo,
		userRepo: userRepo,
		guard:    guard,
		audit:    audit,
	}
}

func (h *RoomHandler) emitAudit(c *gin.Context, eventType, text string, roomID *int64) {
	userID := c.GetInt64("userID")
	h.audit.Emit(c.Request.Context(), telemetry.Event{
		Type:      eventType,
		Level:     "INFO",
		Text:      text,
		RequestID: requestIDFromContext(c),
		UserID:    &userID,
		RoomID:    roomID,
	})
}

// CreatePrivateRoom creates a 1:1 room between the caller and one other
// user. At most one private room may exist per user pair.
func (h *RoomHandler) CreatePrivateRoom(c *gin.Context) {
	actor := actorFromContext(c)

	var req struct {
		CoMemberID int64 `json:"co_member_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.CoMemberID == actor.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot create a private room with yourself"})
		return
	}

	if _, err := h.userRepo.GetUserByID(c.Request.Context(), req.CoMemberID); err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "co-member not found"})
		return
	}

	room, err := h.roomRepo.CreatePrivateRoom(c.Request.Context(), actor.UserID, req.CoMemberID)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateRoom) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a private room with this user already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	h.emitAudit(c, "room_created", "private room created", &room.ID)
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

// CreateGroupRoom creates a group room. The caller becomes a member
// with the admin role whether or not they listed themselves.
func (h *RoomHandler) CreateGroupRoom(c *gin.Context) {
	actor := actorFromContext(c)

	var req struct {
		RoomName  string  `json:"room_name" binding:"required"`
		MemberIDs []int64 `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomRepo.CreateGroupRoom(c.Request.Context(), actor.UserID, req.RoomName, req.MemberIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	h.emitAudit(c, "room_created", "group room created", &room.ID)
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

// GetRoom returns one room the caller belongs to.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := paramID(c, "room_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	actor := actorFromContext(c)
	room, err := h.roomRepo.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "room not found"})
		return
	}
	if !room.HasMember(actor.UserID) && !actor.IsAppAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room member"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

// ListMyRooms returns every room the caller belongs to, newest first.
func (h *RoomHandler) ListMyRooms(c *gin.Context) {
	actor := actorFromContext(c)

	rooms, err := h.roomRepo.ListRoomsForUser(c.Request.Context(), actor.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// UpdateRoom applies a partial update (name, visibility) to a room the
// caller administers.
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	roomID, ok := paramID(c, "room_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	var req struct {
		RoomName *string `json:"room_name"`
		IsPublic *bool   `json:"is_public"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RoomName == nil && req.IsPublic == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	actor := actorFromContext(c)
	room, err := h.roomRepo.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "room not found"})
		return
	}

	allowed, err := h.guard.CanAdministerRoom(c.Request.Context(), room, actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check permissions"})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "you don't have permission to update this room"})
		return
	}

	updated, err := h.roomRepo.UpdateRoom(c.Request.Context(), roomID, repositories.RoomUpdate{
		RoomName: req.RoomName,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update room"})
		return
	}

	h.emitAudit(c, "room_updated", "room updated", &room.ID)
	c.JSON(http.StatusOK, gin.H{"room": updated})
}

// AddMember adds a user to a group room.
func (h *RoomHandler) AddMember(c *gin.Context) {
	roomID, ok := paramID(c, "room_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, allowed, ok := h.administeredGroupRoom(c, roomID)
	if !ok {
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "you don't have permission to manage this room"})
		return
	}

	if _, err := h.userRepo.GetUserByID(c.Request.Context(), req.UserID); err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "user not found"})
		return
	}

	if err := h.roomRepo.AddMember(c.Request.Context(), roomID, req.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}

	h.emitAudit(c, "room_member_added", "member added", &room.ID)
	c.JSON(http.StatusOK, gin.H{"status": "member added"})
}

// RemoveMember removes a user from a group room. Members may remove
// themselves; anyone else requires admin rights.
func (h *RoomHandler) RemoveMember(c *gin.Context) {
	roomID, ok := paramID(c, "room_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	memberID, ok := paramID(c, "user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	actor := actorFromContext(c)
	room, allowed, ok := h.administeredGroupRoom(c, roomID)
	if !ok {
		return
	}
	if !allowed && memberID != actor.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "you don't have permission to manage this room"})
		return
	}

	if err := h.roomRepo.RemoveMember(c.Request.Context(), roomID, memberID); err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomMemberNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "failed to remove member"})
		return
	}

	h.emitAudit(c, "room_member_removed", "member removed", &room.ID)
	c.JSON(http.StatusOK, gin.H{"status": "member removed"})
}

// SetMemberRole promotes a group member to admin or demotes them back
// to member.
func (h *RoomHandler) SetMemberRole(c *gin.Context) {
	roomID, ok := paramID(c, "room_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	memberID, ok := paramID(c, "user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role != models.RoleMember && req.Role != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be member or admin"})
		return
	}

	room, allowed, ok := h.administeredGroupRoom(c, roomID)
	if !ok {
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "you don't have permission to manage this room"})
		return
	}

	if err := h.roomRepo.SetMemberRole(c.Request.Context(), roomID, memberID, req.Role); err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomMemberNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "failed to change role"})
		return
	}

	h.emitAudit(c, "room_role_changed", "member role changed", &room.ID)
	c.JSON(http.StatusOK, gin.H{"status": "role updated"})
}

// SetFlag toggles one of the caller's per-user room flags (bookmark,
// pin, archive).
func (h *RoomHandler) SetFlag(flag repositories.RoomFlag) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, ok := paramID(c, "room_id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
			return
		}

		var req struct {
			On *bool `json:"on" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		actor := actorFromContext(c)
		room, err := h.roomRepo.GetRoom(c.Request.Context(), roomID)
		if err != nil {
			responseStatus := http.StatusInternalServerError
			if errors.Is(err, repositories.ErrRoomNotFound) {
				responseStatus = http.StatusNotFound
			}
			c.JSON(responseStatus, gin.H{"error": "room not found"})
			return
		}
		if !room.HasMember(actor.UserID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a room member"})
			return
		}

		if err := h.roomRepo.SetUserFlag(c.Request.Context(), roomID, actor.UserID, flag, *req.On); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update flag"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "flag updated"})
	}
}

// administeredGroupRoom loads the room, rejects private rooms and
// evaluates admin rights. The third return is false when a response has
// already been written.
func (h *RoomHandler) administeredGroupRoom(c *gin.Context, roomID int64) (models.Room, bool, bool) {
	room, err := h.roomRepo.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "room not found"})
		return models.Room{}, false, false
	}
	if !room.IsGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "membership cannot change in a private room"})
		return models.Room{}, false, false
	}

	allowed, err := h.guard.CanAdministerRoom(c.Request.Context(), room, actorFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check permissions"})
		return models.Room{}, false, false
	}
	return room, allowed, true
}
