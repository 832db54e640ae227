package models

import "time"

// ReceiptAction records what caused a receipt to be written.
// ActionDelete is reserved for audit tooling; the service never writes
// it because deletion cascades through the datastore.
type ReceiptAction string

const (
	ActionOriginalSend ReceiptAction = "original-send"
	ActionEdit         ReceiptAction = "edit"
	ActionReaction     ReceiptAction = "reaction"
	ActionSystem       ReceiptAction = "system"
	ActionDelete       ReceiptAction = "delete"
)

// Valid reports whether a is a known action kind.
func (a ReceiptAction) Valid() bool {
	switch a {
	case ActionOriginalSend, ActionEdit, ActionReaction, ActionSystem, ActionDelete:
		return true
	}
	return false
}

// StatusReceipt is one row of the append-only delivery ledger: a
// specific receiver reached a specific state for a specific revision of
// a message. UpdatesCountTracker is the message's updates_counter at
// write time; receipts stamped with an older revision are kept for
// audit but never count toward coverage of the current revision.
type StatusReceipt struct {
	ID                  int64         `db:"id" json:"id"`
	MessageID           int64         `db:"message_id" json:"message_id"`
	SenderID            int64         `db:"sender_id" json:"sender_id"`
	ReceiverID          int64         `db:"receiver_id" json:"receiver_id"`
	RoomID              int64         `db:"room_id" json:"room_id"`
	Action              ReceiptAction `db:"action" json:"action"`
	Status              MessageStatus `db:"status" json:"status"`
	UpdatesCountTracker int64         `db:"updates_count_tracker" json:"updates_count_tracker"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
}
