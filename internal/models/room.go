package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Room represents a private (1:1) or group conversation. A private room
// has exactly one counterpart in CoMember; a group room carries its
// full membership in CoMembers. IsGroup never changes after creation.
type Room struct {
	ID           int64          `db:"id" json:"id"`
	RoomName     sql.NullString `db:"room_name" json:"room_name"`
	IsGroup      bool           `db:"is_group" json:"is_group"`
	CreatedBy    sql.NullInt64  `db:"created_by" json:"created_by"`
	CoMember     sql.NullInt64  `db:"co_member" json:"co_member"`
	CoMembers    pq.Int64Array  `db:"co_members" json:"co_members"`
	BookmarkedBy pq.Int64Array  `db:"bookmarked_by" json:"bookmarked_by"`
	PinnedBy     pq.Int64Array  `db:"pinned_by" json:"pinned_by"`
	ArchivedBy   pq.Int64Array  `db:"archived_by" json:"archived_by"`
	IsPublic     bool           `db:"is_public" json:"is_public"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Recipients returns the fan-out set for a message sent by senderID,
// derived from the room's membership as stored right now. For a private
// room that is the side that is not the sender; for a group room it is
// every id in co_members except the sender.
func (r Room) Recipients(senderID int64) []int64 {
	if r.IsGroup {
		out := make([]int64, 0, len(r.CoMembers))
		for _, id := range r.CoMembers {
			if id == senderID {
				continue
			}
			out = append(out, id)
		}
		return out
	}
	if r.CoMember.Valid && r.CoMember.Int64 != senderID {
		return []int64{r.CoMember.Int64}
	}
	if r.CreatedBy.Valid && r.CreatedBy.Int64 != senderID {
		return []int64{r.CreatedBy.Int64}
	}
	return nil
}

// HasMember reports whether userID belongs to the room.
func (r Room) HasMember(userID int64) bool {
	if r.IsGroup {
		for _, id := range r.CoMembers {
			if id == userID {
				return true
			}
		}
		return false
	}
	return (r.CoMember.Valid && r.CoMember.Int64 == userID) ||
		(r.CreatedBy.Valid && r.CreatedBy.Int64 == userID)
}

// RoomMemberRole values for room_members rows.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// RoomMember is one membership row, carrying the member's role inside
// the room.
type RoomMember struct {
	ID        int64     `db:"id" json:"id"`
	RoomID    int64     `db:"room_id" json:"room_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	JoinedAt  string    `db:"joined_at" json:"joined_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
