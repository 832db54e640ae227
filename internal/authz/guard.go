// Package authz answers "may this user act on this message or room".
// Checks run strictly before the status engine; a rejection means no
// mutation and no receipt writes.
package authz

import (
	"context"
	"errors"

	"chat-rooms-service/internal/models"
	"chat-rooms-service/internal/repositories"
)

var ErrForbidden = errors.New("forbidden")

// Actor is the authenticated caller, as resolved by the auth
// middleware. IsAppAdmin is the application-wide admin flag, distinct
// from a per-room admin role.
type Actor struct {
	UserID     int64
	IsAppAdmin bool
}

// Guard evaluates mutation permissions against already-loaded rows
// plus the room_members role table.
type Guard struct {
	rooms repositories.RoomRepository
}

// NewGuard constructs a Guard.
func NewGuard(rooms repositories.RoomRepository) *Guard {
	return &Guard{rooms: rooms}
}

// CanDelete permits the message's sender or an app admin.
func (g *Guard) CanDelete(msg models.Message, actor Actor) bool {
	return msg.SentBy(actor.UserID) || actor.IsAppAdmin
}

// CanEdit permits only the original sender.
func (g *Guard) CanEdit(msg models.Message, actor Actor) bool {
	return msg.SentBy(actor.UserID)
}

// CanReact permits any current room member. In a private room either
// participant may react: the stored co_member or the message's sender.
func (g *Guard) CanReact(msg models.Message, room models.Room, actor Actor) bool {
	if room.IsGroup {
		return room.HasMember(actor.UserID)
	}
	return (room.CoMember.Valid && room.CoMember.Int64 == actor.UserID) ||
		msg.SentBy(actor.UserID)
}

// CanAdministerRoom permits room admin actions (membership changes,
// role changes, renames, visibility): the actor must hold the admin
// role in the room, be the room's creator, or be an app admin.
func (g *Guard) CanAdministerRoom(ctx context.Context, room models.Room, actor Actor) (bool, error) {
	if actor.IsAppAdmin {
		return true, nil
	}
	if room.CreatedBy.Valid && room.CreatedBy.Int64 == actor.UserID {
		return true, nil
	}
	role, err := g.rooms.MemberRole(ctx, room.ID, actor.UserID)
	if errors.Is(err, repositories.ErrRoomMemberNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == models.RoleAdmin, nil
}
