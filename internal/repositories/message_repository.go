package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"chat-rooms-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, room_id, sender_id, message_type, text_content, attachment_1, attachment_2, attachment_3, attachment_4, updates_counter, status, sent_at, created_at, updated_at`

// MessageFlag identifies one of the per-user message flag tables.
type MessageFlag string

const (
	MessageFlagBookmarked MessageFlag = "message_bookmarks"
	MessageFlagArchived   MessageFlag = "message_archives"
)

// CreateMessageParams carries the fields of a new message. Attachments
// beyond the first four are rejected at the handler layer.
type CreateMessageParams struct {
	RoomID      int64
	SenderID    int64
	MessageType string
	TextContent string
	Attachments []string
	SentAt      string
}

// MessageRepository defines interactions with message rows and their
// edit/reaction side tables.
type MessageRepository interface {
	CreateMessage(ctx context.Context, params CreateMessageParams) (models.Message, error)
	GetMessage(ctx context.Context, messageID int64) (models.Message, error)
	ListRoomMessages(ctx context.Context, roomID int64) ([]models.Message, error)
	ListRoomMessagesToSync(ctx context.Context, roomID int64) ([]models.Message, error)
	BumpRevision(ctx context.Context, messageID int64, status models.MessageStatus, newText *string) (models.Message, error)
	UpdateStatus(ctx context.Context, messageID int64, status models.MessageStatus) error
	DeleteMessage(ctx context.Context, messageID int64) error
	InsertEdit(ctx context.Context, messageID int64, previousContent string, newContent string) error
	ListEdits(ctx context.Context, messageID int64) ([]models.MessageEdit, error)
	UpsertReaction(ctx context.Context, messageID int64, userID int64, reaction string, revision int64) (models.MessageReaction, error)
	SetUserFlag(ctx context.Context, messageID int64, userID int64, flag MessageFlag, on bool) error
	ListFlaggedMessages(ctx context.Context, userID int64, flag MessageFlag) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed implementation.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message with status 'sent' and revision 0.
func (r *MessageRepo) CreateMessage(ctx context.Context, params CreateMessageParams) (models.Message, error) {
	attachments := make([]sql.NullString, 4)
	for i, a := range params.Attachments {
		if i >= 4 {
			break
		}
		if a != "" {
			attachments[i] = sql.NullString{String: a, Valid: true}
		}
	}

	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages
        (room_id, sender_id, message_type, text_content, attachment_1, attachment_2, attachment_3, attachment_4, status, sent_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'sent', $9)
        RETURNING `+messageColumns,
		params.RoomID, params.SenderID, params.MessageType, params.TextContent,
		attachments[0], attachments[1], attachments[2], attachments[3], params.SentAt).
		StructScan(&msg)
	return msg, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListRoomMessages returns the room's messages in send order.
func (r *MessageRepo) ListRoomMessages(ctx context.Context, roomID int64) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE room_id=$1 ORDER BY created_at ASC`, roomID)
	return msgs, err
}

// ListRoomMessagesToSync returns messages still eligible for a seen
// sweep: anything not already seen and not sitting at a fresh edit.
func (r *MessageRepo) ListRoomMessagesToSync(ctx context.Context, roomID int64) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE room_id=$1 AND status NOT IN ('seen', 'updated')
        ORDER BY created_at ASC`, roomID)
	return msgs, err
}

// BumpRevision atomically increments updates_counter by one and sets
// the coarse status, optionally replacing the text content in the same
// statement. Two concurrent callers always observe distinct new
// revision values because the increment happens inside the UPDATE.
func (r *MessageRepo) BumpRevision(ctx context.Context, messageID int64, status models.MessageStatus, newText *string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages
        SET updates_counter = updates_counter + 1,
            status = $2,
            text_content = COALESCE($3, text_content),
            updated_at = NOW()
        WHERE id = $1
        RETURNING `+messageColumns, messageID, status, newText).
		StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UpdateStatus writes the coarse status summary. The ledger stays
// authoritative; this is a plain overwrite so that re-running a sync is
// idempotent without locking.
func (r *MessageRepo) UpdateStatus(ctx context.Context, messageID int64, status models.MessageStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET status=$2, updated_at=NOW() WHERE id=$1`, messageID, status)
	return err
}

// DeleteMessage removes the message; receipts, edits and reactions go
// with it through the ON DELETE CASCADE constraints.
func (r *MessageRepo) DeleteMessage(ctx context.Context, messageID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// InsertEdit appends an edit-history row.
func (r *MessageRepo) InsertEdit(ctx context.Context, messageID int64, previousContent string, newContent string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO message_edits (message_id, previous_content, new_content) VALUES ($1, $2, $3)`,
		messageID, previousContent, newContent)
	return err
}

// ListEdits returns the edit history, most recent first.
func (r *MessageRepo) ListEdits(ctx context.Context, messageID int64) ([]models.MessageEdit, error) {
	var edits []models.MessageEdit
	err := r.db.SelectContext(ctx, &edits, `SELECT id, message_id, previous_content, new_content, created_at
        FROM message_edits WHERE message_id=$1 ORDER BY created_at DESC`, messageID)
	return edits, err
}

// UpsertReaction writes the user's current reaction on a message. A
// repeat reaction overwrites the value and revision stamp.
func (r *MessageRepo) UpsertReaction(ctx context.Context, messageID int64, userID int64, reaction string, revision int64) (models.MessageReaction, error) {
	var row models.MessageReaction
	err := r.db.QueryRowxContext(ctx, `INSERT INTO message_reactions (message_id, user_id, reaction, revision)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (message_id, user_id)
        DO UPDATE SET reaction = EXCLUDED.reaction, revision = EXCLUDED.revision, created_at = NOW()
        RETURNING id, message_id, user_id, reaction, revision, created_at`,
		messageID, userID, reaction, revision).
		StructScan(&row)
	return row, err
}

// SetUserFlag marks or unmarks a message as bookmarked or archived by
// the user. Marking twice is a no-op; the flag maps to a fixed table,
// anything else is rejected before touching SQL.
func (r *MessageRepo) SetUserFlag(ctx context.Context, messageID int64, userID int64, flag MessageFlag, on bool) error {
	var query string
	switch flag {
	case MessageFlagBookmarked:
		if on {
			query = `INSERT INTO message_bookmarks (user_id, message_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		} else {
			query = `DELETE FROM message_bookmarks WHERE user_id=$1 AND message_id=$2`
		}
	case MessageFlagArchived:
		if on {
			query = `INSERT INTO message_archives (user_id, message_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		} else {
			query = `DELETE FROM message_archives WHERE user_id=$1 AND message_id=$2`
		}
	default:
		return fmt.Errorf("unknown message flag %q", flag)
	}

	_, err := r.db.ExecContext(ctx, query, userID, messageID)
	return err
}

// ListFlaggedMessages returns the messages the user has bookmarked or
// archived, most recently flagged first.
func (r *MessageRepo) ListFlaggedMessages(ctx context.Context, userID int64, flag MessageFlag) ([]models.Message, error) {
	var table string
	switch flag {
	case MessageFlagBookmarked, MessageFlagArchived:
		table = string(flag)
	default:
		return nil, fmt.Errorf("unknown message flag %q", flag)
	}

	cols := "m.id, m.room_id, m.sender_id, m.message_type, m.text_content, m.attachment_1, m.attachment_2, m.attachment_3, m.attachment_4, m.updates_counter, m.status, m.sent_at, m.created_at, m.updated_at"
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+cols+` FROM messages m
        JOIN `+table+` f ON f.message_id = m.id
        WHERE f.user_id = $1
        ORDER BY f.created_at DESC`, userID)
	return msgs, err
}
