package store

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/haichat/haichat/internal/types"
)

type MockChatStore struct {
	mock.Mock
}

func (m *MockChatStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockChatStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockChatStore) CreateAccount(ctx context.Context, params CreateAccountParams) (types.User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(types.User), args.Error(1)
}
func (m *MockChatStore) GetAccountById(ctx context.Context, userId primitive.ObjectID) (types.User, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(types.User), args.Error(1)
}
func (m *MockChatStore) GetAccountByEmail(ctx context.Context, email string) (types.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(types.User), args.Error(1)
}
func (m *MockChatStore) UpdateAccount(ctx context.Context, params UpdateAccountParams) (types.User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(types.User), args.Error(1)
}
func (m *MockChatStore) SearchAccounts(ctx context.Context, query string, excluding primitive.ObjectID) ([]types.User, error) {
	args := m.Called(ctx, query, excluding)
	return args.Get(0).([]types.User), args.Error(1)
}
func (m *MockChatStore) SetUserStatus(ctx context.Context, userId primitive.ObjectID, status types.UserStatus, lastSeen time.Time) error {
	args := m.Called(ctx, userId, status, lastSeen)
	return args.Error(0)
}
func (m *MockChatStore) FindOrCreateDirectChat(ctx context.Context, participants []primitive.ObjectID) (types.Chat, error) {
	args := m.Called(ctx, participants)
	return args.Get(0).(types.Chat), args.Error(1)
}
func (m *MockChatStore) GetChatById(ctx context.Context, chatId primitive.ObjectID) (types.Chat, error) {
	args := m.Called(ctx, chatId)
	return args.Get(0).(types.Chat), args.Error(1)
}
func (m *MockChatStore) ChatsForUser(ctx context.Context, userId primitive.ObjectID) ([]types.Chat, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).([]types.Chat), args.Error(1)
}
func (m *MockChatStore) CreateGroupChat(ctx context.Context, params CreateGroupChatParams) (types.Chat, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(types.Chat), args.Error(1)
}
func (m *MockChatStore) UpdateGroupChat(ctx context.Context, params UpdateGroupChatParams) (types.Chat, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(types.Chat), args.Error(1)
}
func (m *MockChatStore) LeaveGroupChat(ctx context.Context, chatId, userId primitive.ObjectID) error {
	args := m.Called(ctx, chatId, userId)
	return args.Error(0)
}
func (m *MockChatStore) SetChatMuted(ctx context.Context, chatId, userId primitive.ObjectID, muted bool) error {
	args := m.Called(ctx, chatId, userId, muted)
	return args.Error(0)
}
func (m *MockChatStore) IsParticipant(ctx context.Context, chatId, userId primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, chatId, userId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatStore) SetLastMessage(ctx context.Context, chatId, messageId primitive.ObjectID) error {
	args := m.Called(ctx, chatId, messageId)
	return args.Error(0)
}
func (m *MockChatStore) CreateMessage(ctx context.Context, params CreateMessageParams) (types.Message, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(types.Message), args.Error(1)
}
func (m *MockChatStore) GetMessageById(ctx context.Context, messageId primitive.ObjectID) (types.Message, error) {
	args := m.Called(ctx, messageId)
	return args.Get(0).(types.Message), args.Error(1)
}
func (m *MockChatStore) GetMessagesPage(ctx context.Context, chatId, viewerId primitive.ObjectID, page, limit int) ([]types.Message, int64, error) {
	args := m.Called(ctx, chatId, viewerId, page, limit)
	return args.Get(0).([]types.Message), args.Get(1).(int64), args.Error(2)
}
func (m *MockChatStore) AddDelivered(ctx context.Context, messageId primitive.ObjectID, userIds []primitive.ObjectID) error {
	args := m.Called(ctx, messageId, userIds)
	return args.Error(0)
}
func (m *MockChatStore) AddSeen(ctx context.Context, messageIds []primitive.ObjectID, userId primitive.ObjectID, seenAt time.Time) error {
	args := m.Called(ctx, messageIds, userId, seenAt)
	return args.Error(0)
}
func (m *MockChatStore) MarkChatSeen(ctx context.Context, chatId, userId primitive.ObjectID, seenAt time.Time) (int64, error) {
	args := m.Called(ctx, chatId, userId, seenAt)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockChatStore) DeleteMessageForEveryone(ctx context.Context, messageId primitive.ObjectID) error {
	args := m.Called(ctx, messageId)
	return args.Error(0)
}
func (m *MockChatStore) DeleteMessageForUser(ctx context.Context, messageId, userId primitive.ObjectID) error {
	args := m.Called(ctx, messageId, userId)
	return args.Error(0)
}
