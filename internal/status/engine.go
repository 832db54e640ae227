// Package status implements the delivery/seen propagation protocol:
// receipt fan-out per message revision, delivered/seen sync sweeps and
// the coarse status promotion rules derived from ledger coverage.
package status

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chat-rooms-service/internal/models"
	"chat-rooms-service/internal/observability"
	"chat-rooms-service/internal/repositories"
)

// RevisionKind distinguishes the two mutations that bump a message's
// revision counter.
type RevisionKind string

const (
	RevisionEdit     RevisionKind = "edit"
	RevisionReaction RevisionKind = "reaction"
)

// Policy holds the configurable edges of the protocol.
type Policy struct {
	// ReceiptForReactingSender includes the reacting user in their own
	// reaction's fan-out. Off by default: a user does not need to be
	// notified of a reaction they authored.
	ReceiptForReactingSender bool
}

// FanoutFailure records one failed receipt write within a wave.
type FanoutFailure struct {
	ReceiverID int64
	Err        error
}

// PartialPropagationError reports that the primary mutation succeeded
// but one or more fan-out receipt writes failed. The wave is safe to
// re-run: receipt inserts are idempotent per receiver and revision.
type PartialPropagationError struct {
	Written  int
	Failures []FanoutFailure
}

func (e *PartialPropagationError) Error() string {
	return fmt.Sprintf("receipt fan-out incomplete: %d written, %d failed", e.Written, len(e.Failures))
}

// SyncOutcome summarizes a delivered/seen sweep.
type SyncOutcome struct {
	ReceiptsWritten int `json:"receipts_written"`
	Promoted        int `json:"promoted"`
}

// Engine computes and stores delivery/seen state. It holds no state of
// its own between calls; all concurrency safety comes from the
// datastore's atomic operations.
type Engine struct {
	rooms    repositories.RoomRepository
	messages repositories.MessageRepository
	receipts repositories.ReceiptRepository
	policy   Policy
	tracer   trace.Tracer
}

// NewEngine constructs the engine.
func NewEngine(rooms repositories.RoomRepository, messages repositories.MessageRepository, receipts repositories.ReceiptRepository, policy Policy) *Engine {
	return &Engine{
		rooms:    rooms,
		messages: messages,
		receipts: receipts,
		policy:   policy,
		tracer:   otel.Tracer("chat-rooms-service/status"),
	}
}

// RecordSend fans out the original-send receipts for a freshly created
// message: one 'sent' receipt per recipient, stamped with revision 0.
// A failure on some receivers does not stop the rest of the wave; the
// message is retained and the incomplete wave is reported as a
// PartialPropagationError.
func (e *Engine) RecordSend(ctx context.Context, room models.Room, senderID int64, msg models.Message) error {
	ctx, span := e.tracer.Start(ctx, "status.RecordSend",
		trace.WithAttributes(attribute.Int64("message.id", msg.ID), attribute.Bool("room.is_group", room.IsGroup)))
	defer span.End()

	return e.fanout(ctx, msg, senderID, room.Recipients(senderID),
		models.ActionOriginalSend, models.StatusSent, msg.UpdatesCounter)
}

// RecordRevision bumps the message's revision by one, sets the coarse
// status for the revision kind and fans out a new wave of receipts
// stamped with the new revision. The revision bump is atomic in the
// datastore; a fan-out failure never rolls it back.
//
// newText carries the replacement content for edits and must be nil
// for reactions.
func (e *Engine) RecordRevision(ctx context.Context, msg models.Message, actorID int64, kind RevisionKind, newText *string) (models.Message, error) {
	ctx, span := e.tracer.Start(ctx, "status.RecordRevision",
		trace.WithAttributes(attribute.Int64("message.id", msg.ID), attribute.String("kind", string(kind))))
	defer span.End()

	room, err := e.rooms.GetRoom(ctx, msg.RoomID)
	if err != nil {
		return models.Message{}, err
	}

	var (
		coarse models.MessageStatus
		action models.ReceiptAction
	)
	switch kind {
	case RevisionEdit:
		coarse, action = models.StatusUpdated, models.ActionEdit
	case RevisionReaction:
		coarse, action = models.StatusReacted, models.ActionReaction
	default:
		return models.Message{}, fmt.Errorf("unknown revision kind %q", kind)
	}

	updated, err := e.messages.BumpRevision(ctx, msg.ID, coarse, newText)
	if err != nil {
		return models.Message{}, err
	}

	recipients := e.revisionRecipients(room, updated, actorID, kind)
	if err := e.fanout(ctx, updated, actorID, recipients, action, coarse, updated.UpdatesCounter); err != nil {
		return updated, err
	}
	return updated, nil
}

// revisionRecipients derives the fan-out set for a revision wave from
// the room's membership as stored right now. Edits notify every side of
// the room, including the editor when the editor is the stored
// co_member; reactions skip the reacting user unless policy says
// otherwise.
func (e *Engine) revisionRecipients(room models.Room, msg models.Message, actorID int64, kind RevisionKind) []int64 {
	if kind == RevisionEdit {
		if room.IsGroup {
			return []int64(room.CoMembers)
		}
		if room.CoMember.Valid {
			return []int64{room.CoMember.Int64}
		}
		return nil
	}

	// Reaction.
	if !room.IsGroup {
		if e.policy.ReceiptForReactingSender {
			out := make([]int64, 0, 2)
			if room.CoMember.Valid {
				out = append(out, room.CoMember.Int64)
			}
			if msg.SenderID.Valid && (!room.CoMember.Valid || msg.SenderID.Int64 != room.CoMember.Int64) {
				out = append(out, msg.SenderID.Int64)
			}
			return out
		}
		// The counterpart of the reactor: the message sender when the
		// reactor is the stored co_member, the co_member otherwise.
		if room.CoMember.Valid && room.CoMember.Int64 == actorID {
			if msg.SenderID.Valid {
				return []int64{msg.SenderID.Int64}
			}
			return nil
		}
		if room.CoMember.Valid {
			return []int64{room.CoMember.Int64}
		}
		return nil
	}

	out := make([]int64, 0, len(room.CoMembers))
	for _, id := range room.CoMembers {
		if id == actorID && !e.policy.ReceiptForReactingSender {
			continue
		}
		out = append(out, id)
	}
	return out
}

// SyncDelivered marks every message in the room that the acting user
// did not send as delivered to that user, then promotes coarse
// statuses. A private room promotes immediately (its one recipient is
// the acting user); a group room promotes only when delivered receipts
// at the message's current revision cover every non-sender member.
func (e *Engine) SyncDelivered(ctx context.Context, room models.Room, userID int64) (SyncOutcome, error) {
	ctx, span := e.tracer.Start(ctx, "status.SyncDelivered",
		trace.WithAttributes(attribute.Int64("room.id", room.ID), attribute.Int64("user.id", userID)))
	defer span.End()

	msgs, err := e.messages.ListRoomMessages(ctx, room.ID)
	if err != nil {
		return SyncOutcome{}, err
	}

	var outcome SyncOutcome
	var failures []FanoutFailure
	for _, msg := range msgs {
		if msg.SentBy(userID) {
			continue
		}

		created, err := e.receipts.Insert(ctx, models.StatusReceipt{
			MessageID:           msg.ID,
			SenderID:            msg.SenderID.Int64,
			ReceiverID:          userID,
			RoomID:              room.ID,
			Action:              models.ActionSystem,
			Status:              models.StatusDelivered,
			UpdatesCountTracker: msg.UpdatesCounter,
		})
		if err != nil {
			observability.IncReceiptFanoutFailure(string(models.ActionSystem))
			failures = append(failures, FanoutFailure{ReceiverID: userID, Err: err})
			continue
		}
		if created {
			observability.IncReceiptFanout(string(models.ActionSystem))
			outcome.ReceiptsWritten++
		}

		if !room.IsGroup {
			if err := e.messages.UpdateStatus(ctx, msg.ID, models.StatusDelivered); err != nil {
				failures = append(failures, FanoutFailure{ReceiverID: userID, Err: err})
				continue
			}
			observability.IncStatusPromotion(string(models.StatusDelivered))
			outcome.Promoted++
			continue
		}

		promoted, err := e.promoteIfCovered(ctx, room, msg, models.StatusDelivered)
		if err != nil {
			failures = append(failures, FanoutFailure{ReceiverID: userID, Err: err})
			continue
		}
		if promoted {
			outcome.Promoted++
		}
	}

	if len(failures) > 0 {
		return outcome, &PartialPropagationError{Written: outcome.ReceiptsWritten, Failures: failures}
	}
	return outcome, nil
}

// SyncSeen sweeps every room the user belongs to and marks unseen
// messages not authored by the user as seen by them, promoting coarse
// statuses under the same private/group asymmetry as SyncDelivered.
// Re-running with nothing new to record is a no-op.
func (e *Engine) SyncSeen(ctx context.Context, userID int64) (SyncOutcome, error) {
	ctx, span := e.tracer.Start(ctx, "status.SyncSeen",
		trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	rooms, err := e.rooms.ListRoomsForUser(ctx, userID)
	if err != nil {
		return SyncOutcome{}, err
	}

	var outcome SyncOutcome
	var failures []FanoutFailure
	for _, room := range rooms {
		msgs, err := e.messages.ListRoomMessagesToSync(ctx, room.ID)
		if err != nil {
			failures = append(failures, FanoutFailure{ReceiverID: userID, Err: err})
			continue
		}

		for _, msg := range msgs {
			if msg.SentBy(userID) {
				continue
			}

			created, err := e.receipts.Insert(ctx, models.StatusReceipt{
				MessageID:           msg.ID,
				SenderID:            msg.SenderID.Int64,
				ReceiverID:          userID,
				RoomID:              room.ID,
				Action:              models.ActionSystem,
				Status:              models.StatusSeen,
				UpdatesCountTracker: msg.UpdatesCounter,
			})
			if err != nil {
				observability.IncReceiptFanoutFailure(string(models.ActionSystem))
				failures = append(failures, FanoutFailure{ReceiverID: userID, Err: err})
				continue
			}
			if created {
				observability.IncReceiptFanout(string(models.ActionSystem))
				outcome.ReceiptsWritten++
			}

			if !room.IsGroup {
				if err := e.messages.UpdateStatus(ctx, msg.ID, models.StatusSeen); err != nil {
					failures = append(failures, FanoutFailure{ReceiverID: userID, Err: err})
					continue
				}
				if created {
					observability.IncStatusPromotion(string(models.StatusSeen))
					outcome.Promoted++
				}
				continue
			}

			promoted, err := e.promoteIfCovered(ctx, room, msg, models.StatusSeen)
			if err != nil {
				failures = append(failures, FanoutFailure{ReceiverID: userID, Err: err})
				continue
			}
			if promoted {
				outcome.Promoted++
			}
		}
	}

	if len(failures) > 0 {
		return outcome, &PartialPropagationError{Written: outcome.ReceiptsWritten, Failures: failures}
	}
	return outcome, nil
}

// promoteIfCovered re-reads the receipts for the message at its current
// revision and advances the coarse status only when every non-sender
// member is covered. The message's sender never needs a receipt for
// their own message. Stale-revision receipts are invisible here because
// ReceiverIDs filters on the current updates_counter.
func (e *Engine) promoteIfCovered(ctx context.Context, room models.Room, msg models.Message, status models.MessageStatus) (bool, error) {
	receiverIDs, err := e.receipts.ReceiverIDs(ctx, msg.ID, status, msg.UpdatesCounter)
	if err != nil {
		return false, err
	}

	if !coverageComplete(room.CoMembers, msg, receiverIDs) {
		return false, nil
	}
	if err := e.messages.UpdateStatus(ctx, msg.ID, status); err != nil {
		return false, err
	}
	observability.IncStatusPromotion(string(status))
	return true, nil
}

// Receipts returns the message's full receipt trail, most recent first.
func (e *Engine) Receipts(ctx context.Context, messageID int64) ([]models.StatusReceipt, error) {
	return e.receipts.ListForMessage(ctx, messageID)
}

// EditHistory returns the message's edit audit rows, most recent first.
func (e *Engine) EditHistory(ctx context.Context, messageID int64) ([]models.MessageEdit, error) {
	return e.messages.ListEdits(ctx, messageID)
}

// fanout writes one receipt per recipient. All writes are issued even
// when some fail; failures are aggregated so that partial completion
// does not depend on iteration order.
func (e *Engine) fanout(ctx context.Context, msg models.Message, senderID int64, recipients []int64, action models.ReceiptAction, status models.MessageStatus, revision int64) error {
	written := 0
	var failures []FanoutFailure
	for _, receiverID := range recipients {
		_, err := e.receipts.Insert(ctx, models.StatusReceipt{
			MessageID:           msg.ID,
			SenderID:            senderID,
			ReceiverID:          receiverID,
			RoomID:              msg.RoomID,
			Action:              action,
			Status:              status,
			UpdatesCountTracker: revision,
		})
		if err != nil {
			observability.IncReceiptFanoutFailure(string(action))
			failures = append(failures, FanoutFailure{ReceiverID: receiverID, Err: err})
			continue
		}
		observability.IncReceiptFanout(string(action))
		written++
	}

	if len(failures) > 0 {
		return &PartialPropagationError{Written: written, Failures: failures}
	}
	return nil
}

// coverageComplete reports whether every member except the message's
// sender appears in receiverIDs. An empty membership never counts as
// covered.
func coverageComplete(members []int64, msg models.Message, receiverIDs []int64) bool {
	if len(members) == 0 {
		return false
	}
	have := make(map[int64]struct{}, len(receiverIDs))
	for _, id := range receiverIDs {
		have[id] = struct{}{}
	}
	for _, member := range members {
		if msg.SentBy(member) {
			continue
		}
		if _, ok := have[member]; !ok {
			return false
		}
	}
	return true
}
