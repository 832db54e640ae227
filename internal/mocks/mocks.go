// Package mocks provides testify mocks for the repository and session
// interfaces used across handler and engine tests.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"chat-rooms-service/internal/models"
	"chat-rooms-service/internal/repositories"
)

// RoomRepositoryMock mocks repositories.RoomRepository.
type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) CreatePrivateRoom(ctx context.Context, createdBy int64, coMember int64) (models.Room, error) {
	args := m.Called(ctx, createdBy, coMember)
	return args.Get(0).(models.Room), args.Error(1)
}

func (m *RoomRepositoryMock) CreateGroupRoom(ctx context.Context, createdBy int64, name string, memberIDs []int64) (models.Room, error) {
	args := m.Called(ctx, createdBy, name, memberIDs)
	return args.Get(0).(models.Room), args.Error(1)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID int64) (models.Room, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(models.Room), args.Error(1)
}

func (m *RoomRepositoryMock) ListRoomsForUser(ctx context.Context, userID int64) ([]models.Room, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Room), args.Error(1)
}

func (m *RoomRepositoryMock) IsMember(ctx context.Context, roomID int64, userID int64) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepositoryMock) MemberRole(ctx context.Context, roomID int64, userID int64) (string, error) {
	args := m.Called(ctx, roomID, userID)
	return args.String(0), args.Error(1)
}

func (m *RoomRepositoryMock) AddMember(ctx context.Context, roomID int64, userID int64) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *RoomRepositoryMock) RemoveMember(ctx context.Context, roomID int64, userID int64) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *RoomRepositoryMock) SetMemberRole(ctx context.Context, roomID int64, userID int64, role string) error {
	args := m.Called(ctx, roomID, userID, role)
	return args.Error(0)
}

func (m *RoomRepositoryMock) UpdateRoom(ctx context.Context, roomID int64, update repositories.RoomUpdate) (models.Room, error) {
	args := m.Called(ctx, roomID, update)
	return args.Get(0).(models.Room), args.Error(1)
}

func (m *RoomRepositoryMock) SetUserFlag(ctx context.Context, roomID int64, userID int64, flag repositories.RoomFlag, on bool) error {
	args := m.Called(ctx, roomID, userID, flag, on)
	return args.Error(0)
}

// MessageRepositoryMock mocks repositories.MessageRepository.
type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, params repositories.CreateMessageParams) (models.Message, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) ListRoomMessages(ctx context.Context, roomID int64) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) ListRoomMessagesToSync(ctx context.Context, roomID int64) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) BumpRevision(ctx context.Context, messageID int64, status models.MessageStatus, newText *string) (models.Message, error) {
	args := m.Called(ctx, messageID, status, newText)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepositoryMock) UpdateStatus(ctx context.Context, messageID int64, status models.MessageStatus) error {
	args := m.Called(ctx, messageID, status)
	return args.Error(0)
}

func (m *MessageRepositoryMock) DeleteMessage(ctx context.Context, messageID int64) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) InsertEdit(ctx context.Context, messageID int64, previousContent string, newContent string) error {
	args := m.Called(ctx, messageID, previousContent, newContent)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ListEdits(ctx context.Context, messageID int64) ([]models.MessageEdit, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MessageEdit), args.Error(1)
}

func (m *MessageRepositoryMock) UpsertReaction(ctx context.Context, messageID int64, userID int64, reaction string, revision int64) (models.MessageReaction, error) {
	args := m.Called(ctx, messageID, userID, reaction, revision)
	return args.Get(0).(models.MessageReaction), args.Error(1)
}

func (m *MessageRepositoryMock) SetUserFlag(ctx context.Context, messageID int64, userID int64, flag repositories.MessageFlag, on bool) error {
	args := m.Called(ctx, messageID, userID, flag, on)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ListFlaggedMessages(ctx context.Context, userID int64, flag repositories.MessageFlag) ([]models.Message, error) {
	args := m.Called(ctx, userID, flag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// ReceiptRepositoryMock mocks repositories.ReceiptRepository.
type ReceiptRepositoryMock struct {
	mock.Mock
}

func (m *ReceiptRepositoryMock) Insert(ctx context.Context, receipt models.StatusReceipt) (bool, error) {
	args := m.Called(ctx, receipt)
	return args.Bool(0), args.Error(1)
}

func (m *ReceiptRepositoryMock) ListForMessage(ctx context.Context, messageID int64) ([]models.StatusReceipt, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StatusReceipt), args.Error(1)
}

func (m *ReceiptRepositoryMock) ReceiverIDs(ctx context.Context, messageID int64, status models.MessageStatus, revision int64) ([]int64, error) {
	args := m.Called(ctx, messageID, status, revision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// UserRepositoryMock mocks repositories.UserRepository.
type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, fullName string, email string, passwordHash string) (models.User, error) {
	args := m.Called(ctx, fullName, email, passwordHash)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepositoryMock) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepositoryMock) GetUserByID(ctx context.Context, userID int64) (models.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepositoryMock) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *UserRepositoryMock) UpdateUser(ctx context.Context, userID int64, update repositories.UserUpdate) (models.User, error) {
	args := m.Called(ctx, userID, update)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepositoryMock) UpdatePassword(ctx context.Context, userID int64, passwordHash string) (models.User, error) {
	args := m.Called(ctx, userID, passwordHash)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfileImage(ctx context.Context, userID int64, imageURL string) (models.User, error) {
	args := m.Called(ctx, userID, imageURL)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepositoryMock) SetActive(ctx context.Context, userID int64, active bool) (models.User, error) {
	args := m.Called(ctx, userID, active)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepositoryMock) SetAdmin(ctx context.Context, userID int64, admin bool) (models.User, error) {
	args := m.Called(ctx, userID, admin)
	return args.Get(0).(models.User), args.Error(1)
}

// SessionStoreMock mocks auth.SessionStore.
type SessionStoreMock struct {
	mock.Mock
}

func (m *SessionStoreMock) Save(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, userID, ttl)
	return args.Error(0)
}

func (m *SessionStoreMock) Exists(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *SessionStoreMock) Revoke(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}
