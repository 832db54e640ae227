package models

import (
	"database/sql"
	"time"
)

// MessageStatus is the coarse, best-effort summary of a message's
// delivery state. The receipt ledger is authoritative; this field is a
// convenience for listing endpoints.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
	StatusUpdated   MessageStatus = "updated"
	StatusReacted   MessageStatus = "reacted"
)

// Valid reports whether s is one of the known statuses.
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusSeen, StatusUpdated, StatusReacted:
		return true
	}
	return false
}

// Message represents a message in a room. UpdatesCounter is bumped by
// exactly one on each edit or reaction; receipts carry the counter
// value in force when they were written.
type Message struct {
	ID             int64          `db:"id" json:"id"`
	RoomID         int64          `db:"room_id" json:"room_id"`
	SenderID       sql.NullInt64  `db:"sender_id" json:"sender_id"`
	MessageType    string         `db:"message_type" json:"message_type"`
	TextContent    sql.NullString `db:"text_content" json:"text_content"`
	Attachment1    sql.NullString `db:"attachment_1" json:"attachment_1"`
	Attachment2    sql.NullString `db:"attachment_2" json:"attachment_2"`
	Attachment3    sql.NullString `db:"attachment_3" json:"attachment_3"`
	Attachment4    sql.NullString `db:"attachment_4" json:"attachment_4"`
	UpdatesCounter int64          `db:"updates_counter" json:"updates_counter"`
	Status         MessageStatus  `db:"status" json:"status"`
	SentAt         string         `db:"sent_at" json:"sent_at"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// SentBy reports whether the message was authored by userID. System
// messages have no sender and are sent by nobody.
func (m Message) SentBy(userID int64) bool {
	return m.SenderID.Valid && m.SenderID.Int64 == userID
}

// MessageEdit is an append-only audit row recording one content change.
// It plays no part in delivery/seen computation.
type MessageEdit struct {
	ID              int64     `db:"id" json:"id"`
	MessageID       int64     `db:"message_id" json:"message_id"`
	PreviousContent string    `db:"previous_content" json:"previous_content"`
	NewContent      string    `db:"new_content" json:"new_content"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// MessageReaction holds the current reaction of one user on one
// message. A second reaction from the same user overwrites the value
// but still bumps the message revision.
type MessageReaction struct {
	ID        int64     `db:"id" json:"id"`
	MessageID int64     `db:"message_id" json:"message_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Reaction  string    `db:"reaction" json:"reaction"`
	Revision  int64     `db:"revision" json:"revision"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
