package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"chat-rooms-service/internal/models"
)

// ReceiptRepository is the append-only status receipt ledger. Inserts
// are idempotent per (message, receiver, status, revision), which makes
// every fan-out and sync safe to retry.
type ReceiptRepository interface {
	Insert(ctx context.Context, receipt models.StatusReceipt) (bool, error)
	ListForMessage(ctx context.Context, messageID int64) ([]models.StatusReceipt, error)
	ReceiverIDs(ctx context.Context, messageID int64, status models.MessageStatus, revision int64) ([]int64, error)
}

// ReceiptRepo is a sqlx-backed implementation.
type ReceiptRepo struct {
	db *sqlx.DB
}

// NewReceiptRepo constructs a ReceiptRepo.
func NewReceiptRepo(db *sqlx.DB) *ReceiptRepo {
	return &ReceiptRepo{db: db}
}

// Insert appends a receipt, ignoring the write when an identical
// (message, receiver, status, revision) row already exists. It reports
// whether a row was actually created.
func (r *ReceiptRepo) Insert(ctx context.Context, receipt models.StatusReceipt) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO message_status_receipts
        (message_id, sender_id, receiver_id, room_id, action, status, updates_count_tracker)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (message_id, receiver_id, status, updates_count_tracker) DO NOTHING`,
		receipt.MessageID, receipt.SenderID, receipt.ReceiverID, receipt.RoomID,
		receipt.Action, receipt.Status, receipt.UpdatesCountTracker)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListForMessage returns every receipt for the message, most recent
// first, including stale-revision rows kept for audit.
func (r *ReceiptRepo) ListForMessage(ctx context.Context, messageID int64) ([]models.StatusReceipt, error) {
	var receipts []models.StatusReceipt
	err := r.db.SelectContext(ctx, &receipts, `SELECT id, message_id, sender_id, receiver_id, room_id, action, status, updates_count_tracker, created_at
        FROM message_status_receipts WHERE message_id=$1 ORDER BY created_at DESC`, messageID)
	return receipts, err
}

// ReceiverIDs returns the receivers holding a receipt with the given
// status at exactly the given revision. Coverage checks call this with
// the message's current updates_counter so stale receipts never count.
func (r *ReceiptRepo) ReceiverIDs(ctx context.Context, messageID int64, status models.MessageStatus, revision int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `SELECT receiver_id FROM message_status_receipts
        WHERE message_id=$1 AND status=$2 AND updates_count_tracker=$3`, messageID, status, revision)
	return ids, err
}
