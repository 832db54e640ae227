package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-rooms-service/internal/authz"
	"chat-rooms-service/internal/models"
	"chat-rooms-service/internal/repositories"
	"chat-rooms-service/internal/status"
	"chat-rooms-service/internal/telemetry"
)

// MessageHandler manages message endpoints: creation, revision,
// reactions, deletion, receipt/edit reads, per-user bookmark/archive
// flags and the status sync calls.
type MessageHandler struct {
	roomRepo    repositories.RoomRepository
	messageRepo repositories.MessageRepository
	engine      *status.Engine
	guard       *authz.Guard
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(roomRepo repositories.RoomRepository, messageRepo repositories.MessageRepository, engine *status.Engine, guard *authz.Guard, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		engine:      engine,
		guard:       guard,
		audit:       audit,
	}
}

func (h *MessageHandler) emitAudit(c *gin.Context, eventType, level, text string, roomID, messageID *int64) {
	userID := c.GetInt64("userID")
	h.audit.Emit(c.Request.Context(), telemetry.Event{
		Type:      eventType,
		Level:     level,
		Text:      text,
		RequestID: requestIDFromContext(c),
		UserID:    &userID,
		RoomID:    roomID,
		MessageID: messageID,
	})
}

// CreateMessage stores a message and fans out the original-send
// receipts. A fan-out failure after the message row succeeded is
// reported as success-with-warning; the caller must not blindly retry
// the whole call, only the sync endpoints (receipt writes are
// idempotent).
func (h *MessageHandler) CreateMessage(c *gin.Context) {
	actor := actorFromContext(c)

	var req struct {
		RoomID      int64    `json:"room_id" binding:"required"`
		MessageType string   `json:"message_type"`
		TextContent string   `json:"text_content"`
		Attachments []string `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Attachments) > 4 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at most 4 attachments"})
		return
	}
	if req.MessageType == "" {
		req.MessageType = "text"
	}

	member, err := h.roomRepo.IsMember(c.Request.Context(), req.RoomID, actor.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify room membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "sender is not a member of this room"})
		return
	}

	room, err := h.roomRepo.GetRoom(c.Request.Context(), req.RoomID)
	if err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "room not found"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), repositories.CreateMessageParams{
		RoomID:      req.RoomID,
		SenderID:    actor.UserID,
		MessageType: req.MessageType,
		TextContent: req.TextContent,
		Attachments: req.Attachments,
		SentAt:      nowMillisString(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create message"})
		return
	}

	h.emitAudit(c, "message_created", "INFO", "message created", &room.ID, &msg.ID)

	if err := h.engine.RecordSend(c.Request.Context(), room, actor.UserID, msg); err != nil {
		var partial *status.PartialPropagationError
		if errors.As(err, &partial) {
			c.JSON(http.StatusCreated, gin.H{
				"message": msg,
				"warning": "message created but some status receipts were not written",
			})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": msg,
			"warning": "message created but status receipts were not written",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// UpdateMessage edits a message's content: edit-history row, atomic
// revision bump and a new receipt wave at the new revision.
func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	messageID, ok := paramID(c, "message_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req struct {
		TextContent string `json:"text_content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := actorFromContext(c)
	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "message not found"})
		return
	}

	if !h.guard.CanEdit(msg, actor) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you can only update your own messages"})
		return
	}

	if err := h.messageRepo.InsertEdit(c.Request.Context(), messageID, msg.TextContent.String, req.TextContent); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save edit history"})
		return
	}

	updated, err := h.engine.RecordRevision(c.Request.Context(), msg, actor.UserID, status.RevisionEdit, &req.TextContent)
	if err != nil {
		var partial *status.PartialPropagationError
		if errors.As(err, &partial) {
			h.emitAudit(c, "message_updated", "WARN", "message updated, receipts incomplete", &msg.RoomID, &msg.ID)
			c.JSON(http.StatusOK, gin.H{
				"message": updated,
				"warning": "message updated but some status receipts were not written",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update message"})
		return
	}

	h.emitAudit(c, "message_updated", "INFO", "message updated", &msg.RoomID, &msg.ID)
	c.JSON(http.StatusOK, gin.H{"message": updated})
}

// ReactToMessage upserts the caller's reaction and records a reaction
// revision wave. A repeat reaction from the same user overwrites the
// value and still bumps the revision.
func (h *MessageHandler) ReactToMessage(c *gin.Context) {
	messageID, ok := paramID(c, "message_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req struct {
		Reaction string `json:"reaction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := actorFromContext(c)
	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "message not found"})
		return
	}

	room, err := h.roomRepo.GetRoom(c.Request.Context(), msg.RoomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get room"})
		return
	}

	if !h.guard.CanReact(msg, room, actor) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not authorized to react to this message"})
		return
	}

	// The revision bump happens first so the reaction row can be
	// stamped with the revision the bump actually assigned, not a value
	// computed from a stale read.
	updated, err := h.engine.RecordRevision(c.Request.Context(), msg, actor.UserID, status.RevisionReaction, nil)
	var partial *status.PartialPropagationError
	if err != nil && !errors.As(err, &partial) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record reaction revision"})
		return
	}

	reaction, err := h.messageRepo.UpsertReaction(c.Request.Context(), messageID, actor.UserID, req.Reaction, updated.UpdatesCounter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save reaction"})
		return
	}

	if partial != nil {
		c.JSON(http.StatusOK, gin.H{
			"reaction": reaction,
			"message":  updated,
			"warning":  "reaction saved but some status receipts were not written",
		})
		return
	}

	h.emitAudit(c, "message_reacted", "INFO", "reaction added", &msg.RoomID, &msg.ID)
	c.JSON(http.StatusOK, gin.H{"reaction": reaction, "message": updated})
}

// DeleteMessage removes a message; receipts, edits and reactions go
// with it through the datastore cascade. Only the sender or an app
// admin may delete.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := paramID(c, "message_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	actor := actorFromContext(c)
	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "message not found"})
		return
	}

	if !h.guard.CanDelete(msg, actor) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you don't have permission to delete this message"})
		return
	}

	if err := h.messageRepo.DeleteMessage(c.Request.Context(), messageID); err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "failed to delete message"})
		return
	}

	h.emitAudit(c, "message_deleted", "INFO", "message deleted", &msg.RoomID, &msg.ID)
	c.Status(http.StatusNoContent)
}

// ListRoomMessages returns the room's messages in send order.
func (h *MessageHandler) ListRoomMessages(c *gin.Context) {
	roomID, ok := paramID(c, "room_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	actor := actorFromContext(c)
	member, err := h.roomRepo.IsMember(c.Request.Context(), roomID, actor.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room member"})
		return
	}

	msgs, err := h.messageRepo.ListRoomMessages(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// GetReceipts returns the message's full receipt trail, most recent
// first.
func (h *MessageHandler) GetReceipts(c *gin.Context) {
	messageID, ok := paramID(c, "message_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if _, err := h.messageRepo.GetMessage(c.Request.Context(), messageID); err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "message not found"})
		return
	}

	receipts, err := h.engine.Receipts(c.Request.Context(), messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch status receipts"})
		return
	}
	if receipts == nil {
		receipts = []models.StatusReceipt{}
	}
	c.JSON(http.StatusOK, gin.H{"receipts": receipts})
}

// GetEditHistory returns the message's edit audit rows, most recent
// first.
func (h *MessageHandler) GetEditHistory(c *gin.Context) {
	messageID, ok := paramID(c, "message_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if _, err := h.messageRepo.GetMessage(c.Request.Context(), messageID); err != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			responseStatus = http.StatusNotFound
		}
		c.JSON(responseStatus, gin.H{"error": "message not found"})
		return
	}

	edits, err := h.engine.EditHistory(c.Request.Context(), messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch edit history"})
		return
	}
	if edits == nil {
		edits = []models.MessageEdit{}
	}
	c.JSON(http.StatusOK, gin.H{"edits": edits})
}

// SyncDelivered marks the room's messages as delivered to the caller
// and promotes coarse statuses where coverage is complete. Safe to
// re-run at any time.
func (h *MessageHandler) SyncDelivered(c *gin.Context) {
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
	if !room.HasMember(actor.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room member"})
		return
	}

	outcome, err := h.engine.SyncDelivered(c.Request.Context(), room, actor.UserID)
	if err != nil {
		var partial *status.PartialPropagationError
		if errors.As(err, &partial) {
			c.JSON(http.StatusOK, gin.H{
				"outcome": outcome,
				"warning": "sync incomplete, safe to retry",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sync room messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

// SetFlag marks or unmarks a message as bookmarked or archived by the
// caller. Marking an already-flagged message is a no-op.
func (h *MessageHandler) SetFlag(flag repositories.MessageFlag) gin.HandlerFunc {
	return func(c *gin.Context) {
		messageID, ok := paramID(c, "message_id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
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
		msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
		if err != nil {
			responseStatus := http.StatusInternalServerError
			if errors.Is(err, repositories.ErrMessageNotFound) {
				responseStatus = http.StatusNotFound
			}
			c.JSON(responseStatus, gin.H{"error": "message not found"})
			return
		}

		if err := h.messageRepo.SetUserFlag(c.Request.Context(), messageID, actor.UserID, flag, *req.On); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update flag"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": msg})
	}
}

// ListFlagged returns the caller's bookmarked or archived messages,
// most recently flagged first.
func (h *MessageHandler) ListFlagged(flag repositories.MessageFlag) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFromContext(c)

		msgs, err := h.messageRepo.ListFlaggedMessages(c.Request.Context(), actor.UserID, flag)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
			return
		}
		if msgs == nil {
			msgs = []models.Message{}
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}

// SyncSeen sweeps every room the caller belongs to and marks messages
// as seen by them. Safe to re-run at any time.
func (h *MessageHandler) SyncSeen(c *gin.Context) {
	actor := actorFromContext(c)

	outcome, err := h.engine.SyncSeen(c.Request.Context(), actor.UserID)
	if err != nil {
		var partial *status.PartialPropagationError
		if errors.As(err, &partial) {
			c.JSON(http.StatusOK, gin.H{
				"outcome": outcome,
				"warning": "sync incomplete, safe to retry",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sync messages to seen"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}
