package authz

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-rooms-service/internal/mocks"
	"chat-rooms-service/internal/models"
	"chat-rooms-service/internal/repositories"
)

func n64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func TestCanDelete(t *testing.T) {
	guard := NewGuard(nil)
	msg := models.Message{SenderID: n64(1)}

	assert.True(t, guard.CanDelete(msg, Actor{UserID: 1}))
	assert.False(t, guard.CanDelete(msg, Actor{UserID: 2}))
	assert.True(t, guard.CanDelete(msg, Actor{UserID: 2, IsAppAdmin: true}))
}

func TestCanEditOnlySender(t *testing.T) {
	guard := NewGuard(nil)
	msg := models.Message{SenderID: n64(1)}

	assert.True(t, guard.CanEdit(msg, Actor{UserID: 1}))
	assert.False(t, guard.CanEdit(msg, Actor{UserID: 2}))
	// App admins may delete but not rewrite someone else's words.
	assert.False(t, guard.CanEdit(msg, Actor{UserID: 2, IsAppAdmin: true}))
}

func TestCanReactGroupRequiresMembership(t *testing.T) {
	guard := NewGuard(nil)
	msg := models.Message{SenderID: n64(1)}
	room := models.Room{IsGroup: true, CoMembers: []int64{1, 2, 3}}

	assert.True(t, guard.CanReact(msg, room, Actor{UserID: 3}))
	assert.False(t, guard.CanReact(msg, room, Actor{UserID: 9}))
}

func TestCanReactPrivateEitherParticipant(t *testing.T) {
	guard := NewGuard(nil)
	msg := models.Message{SenderID: n64(1)}
	room := models.Room{IsGroup: false, CreatedBy: n64(1), CoMember: n64(2)}

	assert.True(t, guard.CanReact(msg, room, Actor{UserID: 1}))
	assert.True(t, guard.CanReact(msg, room, Actor{UserID: 2}))
	assert.False(t, guard.CanReact(msg, room, Actor{UserID: 3}))
}

func TestCanAdministerRoom(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	guard := NewGuard(rooms)
	room := models.Room{ID: 20, IsGroup: true, CreatedBy: n64(1), CoMembers: []int64{1, 2, 3}}

	ok, err := guard.CanAdministerRoom(context.Background(), room, Actor{UserID: 9, IsAppAdmin: true})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.CanAdministerRoom(context.Background(), room, Actor{UserID: 1})
	require.NoError(t, err)
	assert.True(t, ok)

	rooms.On("MemberRole", mock.Anything, int64(20), int64(2)).Return(models.RoleAdmin, nil).Once()
	ok, err = guard.CanAdministerRoom(context.Background(), room, Actor{UserID: 2})
	require.NoError(t, err)
	assert.True(t, ok)

	rooms.On("MemberRole", mock.Anything, int64(20), int64(3)).Return(models.RoleMember, nil).Once()
	ok, err = guard.CanAdministerRoom(context.Background(), room, Actor{UserID: 3})
	require.NoError(t, err)
	assert.False(t, ok)

	rooms.On("MemberRole", mock.Anything, int64(20), int64(9)).Return("", repositories.ErrRoomMemberNotFound).Once()
	ok, err = guard.CanAdministerRoom(context.Background(), room, Actor{UserID: 9})
	require.NoError(t, err)
	assert.False(t, ok)

	rooms.AssertExpectations(t)
}
