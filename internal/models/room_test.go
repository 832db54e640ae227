package models

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func n64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func TestRecipientsPrivate(t *testing.T) {
	room := Room{CreatedBy: n64(1), CoMember: n64(2)}

	assert.Equal(t, []int64{2}, room.Recipients(1))
	assert.Equal(t, []int64{1}, room.Recipients(2))
}

func TestRecipientsGroupExcludesSender(t *testing.T) {
	room := Room{IsGroup: true, CoMembers: []int64{1, 2, 3}}

	assert.Equal(t, []int64{2, 3}, room.Recipients(1))
	assert.Equal(t, []int64{1, 3}, room.Recipients(2))
}

func TestHasMember(t *testing.T) {
	private := Room{CreatedBy: n64(1), CoMember: n64(2)}
	assert.True(t, private.HasMember(1))
	assert.True(t, private.HasMember(2))
	assert.False(t, private.HasMember(3))

	group := Room{IsGroup: true, CoMembers: []int64{1, 2}}
	assert.True(t, group.HasMember(2))
	assert.False(t, group.HasMember(3))
}

func TestSentBy(t *testing.T) {
	msg := Message{SenderID: n64(1)}
	assert.True(t, msg.SentBy(1))
	assert.False(t, msg.SentBy(2))

	// System messages carry no sender.
	system := Message{}
	assert.False(t, system.SentBy(1))
}

func TestMessageStatusValid(t *testing.T) {
	for _, s := range []MessageStatus{StatusSent, StatusDelivered, StatusSeen, StatusUpdated, StatusReacted} {
		assert.True(t, s.Valid())
	}
	assert.False(t, MessageStatus("vanished").Valid())
}

func TestReceiptActionValid(t *testing.T) {
	for _, a := range []ReceiptAction{ActionOriginalSend, ActionEdit, ActionReaction, ActionSystem, ActionDelete} {
		assert.True(t, a.Valid())
	}
	assert.False(t, ReceiptAction("teleport").Valid())
}
