package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/haichat/haichat/internal/types"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNotGroupChat = errors.New("not a group chat")
)

type CreateAccountParams struct {
	Name         string
	Email        string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId           primitive.ObjectID
	Name             string
	Bio              string
	Avatar           string
	AiEnabled        *bool
	AutoReplyEnabled *bool
}

type CreateGroupChatParams struct {
	GroupName    string
	Description  string
	Admin        primitive.ObjectID
	Participants []primitive.ObjectID
}

type UpdateGroupChatParams struct {
	ChatId        primitive.ObjectID
	GroupName     string
	Description   *string
	GroupAvatar   string
	AddMembers    []primitive.ObjectID
	RemoveMembers []primitive.ObjectID
}

type CreateMessageParams struct {
	SenderId      primitive.ObjectID
	ChatId        primitive.ObjectID
	Content       string
	MessageType   types.MessageType
	MediaUrl      string
	FileName      string
	FileSize      int64
	ReplyToId     primitive.ObjectID
	IsAiGenerated bool
}

// ChatStore is the persistence contract consumed by the realtime core and
// the HTTP layer. Implementations must make every set-add idempotent:
// delivered/seen/muted/deletedFor adds are no-ops when already present.
type ChatStore interface {
	Ping(ctx context.Context) error

	CreateAccount(ctx context.Context, params CreateAccountParams) (types.User, error)
	GetAccountById(ctx context.Context, userId primitive.ObjectID) (types.User, error)
	GetAccountByEmail(ctx context.Context, email string) (types.User, error)
	UpdateAccount(ctx context.Context, params UpdateAccountParams) (types.User, error)
	SearchAccounts(ctx context.Context, query string, excluding primitive.ObjectID) ([]types.User, error)
	SetUserStatus(ctx context.Context, userId primitive.ObjectID, status types.UserStatus, lastSeen time.Time) error

	FindOrCreateDirectChat(ctx context.Context, participants []primitive.ObjectID) (types.Chat, error)
	GetChatById(ctx context.Context, chatId primitive.ObjectID) (types.Chat, error)
	ChatsForUser(ctx context.Context, userId primitive.ObjectID) ([]types.Chat, error)
	CreateGroupChat(ctx context.Context, params CreateGroupChatParams) (types.Chat, error)
	UpdateGroupChat(ctx context.Context, params UpdateGroupChatParams) (types.Chat, error)
	LeaveGroupChat(ctx context.Context, chatId, userId primitive.ObjectID) error
	SetChatMuted(ctx context.Context, chatId, userId primitive.ObjectID, muted bool) error
	IsParticipant(ctx context.Context, chatId, userId primitive.ObjectID) (bool, error)
	SetLastMessage(ctx context.Context, chatId, messageId primitive.ObjectID) error

	CreateMessage(ctx context.Context, params CreateMessageParams) (types.Message, error)
	GetMessageById(ctx context.Context, messageId primitive.ObjectID) (types.Message, error)
	GetMessagesPage(ctx context.Context, chatId, viewerId primitive.ObjectID, page, limit int) ([]types.Message, int64, error)
	AddDelivered(ctx context.Context, messageId primitive.ObjectID, userIds []primitive.ObjectID) error
	AddSeen(ctx context.Context, messageIds []primitive.ObjectID, userId primitive.ObjectID, seenAt time.Time) error
	MarkChatSeen(ctx context.Context, chatId, userId primitive.ObjectID, seenAt time.Time) (int64, error)
	DeleteMessageForEveryone(ctx context.Context, messageId primitive.ObjectID) error
	DeleteMessageForUser(ctx context.Context, messageId, userId primitive.ObjectID) error

	Close(ctx context.Context) error
}
