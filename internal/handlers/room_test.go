package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-rooms-service/internal/authz"
	"chat-rooms-service/internal/mocks"
	"chat-rooms-service/internal/models"
	"chat-rooms-service/internal/repositories"
)

func setupRoomRouter(handler *RoomHandler, userID int64, isAdmin bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("isAppAdmin", isAdmin)
		c.Next()
	})
	r.POST("/rooms/private", handler.CreatePrivateRoom)
	r.POST("/rooms/group", handler.CreateGroupRoom)
	r.GET("/rooms", handler.ListMyRooms)
	r.GET("/rooms/:room_id", handler.GetRoom)
	r.PATCH("/rooms/:room_id", handler.UpdateRoom)
	r.POST("/rooms/:room_id/members", handler.AddMember)
	r.DELETE("/rooms/:room_id/members/:user_id", handler.RemoveMember)
	r.PUT("/rooms/:room_id/members/:user_id/role", handler.SetMemberRole)
	r.PUT("/rooms/:room_id/bookmark", handler.SetFlag(repositories.FlagBookmarked))
	return r
}

func newRoomHandler(userID int64, isAdmin bool) (*gin.Engine, *mocks.RoomRepositoryMock, *mocks.UserRepositoryMock) {
	roomRepo := new(mocks.RoomRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewRoomHandler(roomRepo, userRepo, authz.NewGuard(roomRepo), nil)
	return setupRoomRouter(handler, userID, isAdmin), roomRepo, userRepo
}

func TestCreatePrivateRoomSuccess(t *testing.T) {
	router, roomRepo, userRepo := newRoomHandler(1, false)

	userRepo.On("GetUserByID", mock.Anything, int64(2)).Return(models.User{ID: 2}, nil).Once()
	roomRepo.On("CreatePrivateRoom", mock.Anything, int64(1), int64(2)).
		Return(models.Room{ID: 10, CreatedBy: n64(1), CoMember: n64(2)}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/private", bytes.NewBufferString(`{"co_member_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	roomRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestCreatePrivateRoomWithSelf(t *testing.T) {
	router, _, _ := newRoomHandler(1, false)

	req := httptest.NewRequest(http.MethodPost, "/rooms/private", bytes.NewBufferString(`{"co_member_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePrivateRoomDuplicate(t *testing.T) {
	router, roomRepo, userRepo := newRoomHandler(1, false)

	userRepo.On("GetUserByID", mock.Anything, int64(2)).Return(models.User{ID: 2}, nil).Once()
	roomRepo.On("CreatePrivateRoom", mock.Anything, int64(1), int64(2)).
		Return(models.Room{}, repositories.ErrDuplicateRoom).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/private", bytes.NewBufferString(`{"co_member_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestCreatePrivateRoomUnknownCoMember(t *testing.T) {
	router, _, userRepo := newRoomHandler(1, false)

	userRepo.On("GetUserByID", mock.Anything, int64(99)).Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/private", bytes.NewBufferString(`{"co_member_id":99}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestCreateGroupRoomSuccess(t *testing.T) {
	router, roomRepo, _ := newRoomHandler(1, false)

	roomRepo.On("CreateGroupRoom", mock.Anything, int64(1), "team", []int64{2, 3}).
		Return(models.Room{ID: 20, IsGroup: true, CreatedBy: n64(1), CoMembers: []int64{1, 2, 3}}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/group", bytes.NewBufferString(`{"room_name":"team","member_ids":[2,3]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestGetRoomNonMember(t *testing.T) {
	router, roomRepo, _ := newRoomHandler(9, false)

	roomRepo.On("GetRoom", mock.Anything, int64(10)).
		Return(models.Room{ID: 10, CreatedBy: n64(1), CoMember: n64(2)}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListMyRoomsEmpty(t *testing.T) {
	router, roomRepo, _ := newRoomHandler(1, false)

	roomRepo.On("ListRoomsForUser", mock.Anything, int64(1)).Return(([]models.Room)(nil), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Rooms []models.Room `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotNil(t, resp.Rooms)
	assert.Empty(t, resp.Rooms)
}

func TestUpdateRoomForbiddenForPlainMember(t *testing.T) {
	router, roomRepo, _ := newRoomHandler(2, false)

	room := models.Room{ID: 20, IsGroup: true, CreatedBy: n64(1), CoMembers: []int64{1, 2}}
	roomRepo.On("GetRoom", mock.Anything, int64(20)).Return(room, nil).Once()
	roomRepo.On("MemberRole", mock.Anything, int64(20), int64(2)).Return(models.RoleMember, nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/rooms/20", bytes.NewBufferString(`{"room_name":"renamed"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestUpdateRoomByCreator(t *testing.T) {
	router, roomRepo, _ := newRoomHandler(1, false)

	room := models.Room{ID: 20, IsGroup: true, CreatedBy: n64(1), CoMembers: []int64{1, 2}}
	newName := "renamed"
	roomRepo.On("GetRoom", mock.Anything, int64(20)).Return(room, nil).Once()
	roomRepo.On("UpdateRoom", mock.Anything, int64(20), mock.MatchedBy(func(u repositories.RoomUpdate) bool {
		return u.RoomName != nil && *u.RoomName == newName && u.IsPublic == nil
	})).Return(room, nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/rooms/20", bytes.NewBufferString(`{"room_name":"renamed"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestUpdateRoomNothingToUpdate(t *testing.T) {
	router, _, _ := newRoomHandler(1, false)

	req := httptest.NewRequest(http.MethodPatch, "/rooms/20", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddMemberToPrivateRoomRejected(t *testing.T) {
	router, roomRepo, _ := newRoomHandler(1, false)

	roomRepo.On("GetRoom", mock.Anything, int64(10)).
		Return(models.Room{ID: 10, CreatedBy: n64(1), CoMember: n64(2)}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/10/members", bytes.NewBufferString(`{"user_id":3}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestAddMemberByRoomAdmin(t *testing.T) {
	router, roomRepo, userRepo := newRoomHandler(1, false)

	room := models.Room{ID: 20, IsGroup: true, CreatedBy: n64(1), CoMembers: []int64{1, 2}}
	roomRepo.On("GetRoom", mock.Anything, int64(20)).Return(room, nil).Once()
	userRepo.On("GetUserByID", mock.Anything, int64(3)).Return(models.User{ID: 3}, nil).Once()
	roomRepo.On("AddMember", mock.Anything, int64(20), int64(3)).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/20/members", bytes.NewBufferString(`{"user_id":3}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	roomRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestRemoveMemberSelfLeave(t *testing.T) {
	router, roomRepo, _ := newRoomHandler(2, false)

	room := models.Room{ID: 20, IsGroup: true, CreatedBy: n64(1), CoMembers: []int64{1, 2}}
	roomRepo.On("GetRoom", mock.Anything, int64(20)).Return(room, nil).Once()
	roomRepo.On("MemberRole", mock.Anything, int64(20), int64(2)).Return(models.RoleMember, nil).Once()
	roomRepo.On("RemoveMember", mock.Anything, int64(20), int64(2)).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/rooms/20/members/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestRemoveOtherMemberRequiresAdmin(t *testing.T) {
	router, roomRepo, _ := newRoomHandler(2, false)

	room := models.Room{ID: 20, IsGroup: true, CreatedBy: n64(1), CoMembers: []int64{1, 2, 3}}
	roomRepo.On("GetRoom", mock.Anything, int64(20)).Return(room, nil).Once()
	roomRepo.On("MemberRole", mock.Anything, int64(20), int64(2)).Return(models.RoleMember, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/rooms/20/members/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestSetMemberRoleValidation(t *testing.T) {
	router, _, _ := newRoomHandler(1, false)

	req := httptest.NewRequest(http.MethodPut, "/rooms/20/members/2/role", bytes.NewBufferString(`{"role":"owner"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetMemberRolePromote(t *testing.T) {
	router, roomRepo, _ := newRoomHandler(1, false)

	room := models.Room{ID: 20, IsGroup: true, CreatedBy: n64(1), CoMembers: []int64{1, 2}}
	roomRepo.On("GetRoom", mock.Anything, int64(20)).Return(room, nil).Once()
	roomRepo.On("SetMemberRole", mock.Anything, int64(20), int64(2), models.RoleAdmin).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/rooms/20/members/2/role", bytes.NewBufferString(`{"role":"admin"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestBookmarkRoom(t *testing.T) {
	router, roomRepo, _ := newRoomHandler(2, false)

	room := models.Room{ID: 10, CreatedBy: n64(1), CoMember: n64(2)}
	roomRepo.On("GetRoom", mock.Anything, int64(10)).Return(room, nil).Once()
	roomRepo.On("SetUserFlag", mock.Anything, int64(10), int64(2), repositories.FlagBookmarked, true).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/rooms/10/bookmark", bytes.NewBufferString(`{"on":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	roomRepo.AssertExpectations(t)
}
