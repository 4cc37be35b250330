package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeletedPlaceholder replaces the content of a message deleted for everyone.
// A message carrying it is never restored.
const DeletedPlaceholder = "This message was deleted"

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeAudio MessageType = "audio"
	MessageTypeFile  MessageType = "file"
)

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
)

type User struct {
	Id               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Email            string             `bson:"email" json:"email,omitempty"`
	PasswordHash     string             `bson:"password" json:"-"`
	Avatar           string             `bson:"avatar" json:"avatar"`
	Bio              string             `bson:"bio" json:"bio,omitempty"`
	Status           UserStatus         `bson:"status" json:"status"`
	LastSeen         time.Time          `bson:"lastSeen" json:"last_seen"`
	AiEnabled        bool               `bson:"aiEnabled" json:"ai_enabled"`
	AutoReplyEnabled bool               `bson:"autoReplyEnabled" json:"auto_reply_enabled"`
	CreatedAt        time.Time          `bson:"createdAt" json:"created_at,omitempty"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updated_at,omitempty"`
}

type Chat struct {
	Id               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	IsGroupChat      bool                 `bson:"isGroupChat" json:"is_group_chat"`
	Participants     []primitive.ObjectID `bson:"participants" json:"participants"`
	GroupName        string               `bson:"groupName,omitempty" json:"group_name,omitempty"`
	GroupAdmin       primitive.ObjectID   `bson:"groupAdmin,omitempty" json:"group_admin,omitempty"`
	GroupAvatar      string               `bson:"groupAvatar,omitempty" json:"group_avatar,omitempty"`
	GroupDescription string               `bson:"groupDescription,omitempty" json:"group_description,omitempty"`
	LastMessageId    primitive.ObjectID   `bson:"lastMessage,omitempty" json:"-"`
	MutedBy          []primitive.ObjectID `bson:"mutedBy,omitempty" json:"muted_by,omitempty"`
	CreatedAt        time.Time            `bson:"createdAt" json:"created_at,omitempty"`
	UpdatedAt        time.Time            `bson:"updatedAt" json:"updated_at,omitempty"`

	// Resolved for listing responses, not stored.
	ParticipantUsers []User   `bson:"-" json:"participant_users,omitempty"`
	LastMessage      *Message `bson:"-" json:"last_message,omitempty"`
}

// SeenReceipt records when a user saw a message.
type SeenReceipt struct {
	UserId primitive.ObjectID `bson:"user" json:"user_id"`
	SeenAt time.Time          `bson:"seenAt" json:"seen_at"`
}

type Message struct {
	Id            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	SenderId      primitive.ObjectID   `bson:"sender" json:"sender_id"`
	ChatId        primitive.ObjectID   `bson:"chatId" json:"chat_id"`
	Content       string               `bson:"content" json:"content"`
	MessageType   MessageType          `bson:"messageType" json:"message_type"`
	MediaUrl      string               `bson:"mediaUrl,omitempty" json:"media_url,omitempty"`
	FileName      string               `bson:"fileName,omitempty" json:"file_name,omitempty"`
	FileSize      int64                `bson:"fileSize,omitempty" json:"file_size,omitempty"`
	DeliveredTo   []primitive.ObjectID `bson:"deliveredTo" json:"delivered_to"`
	SeenBy        []SeenReceipt        `bson:"seenBy" json:"seen_by"`
	ReplyToId     primitive.ObjectID   `bson:"replyTo,omitempty" json:"-"`
	DeletedFor    []primitive.ObjectID `bson:"deletedFor,omitempty" json:"-"`
	IsDeleted     bool                 `bson:"isDeleted" json:"is_deleted"`
	IsAiGenerated bool                 `bson:"isAiGenerated" json:"is_ai_generated"`
	CreatedAt     time.Time            `bson:"createdAt" json:"created_at"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updated_at,omitempty"`

	// Resolved references, not stored.
	Sender  *User    `bson:"-" json:"sender,omitempty"`
	ReplyTo *Message `bson:"-" json:"reply_to,omitempty"`
}

// SeenByUser reports whether the given user appears in the message's seen set.
func (m *Message) SeenByUser(userId primitive.ObjectID) bool {
	for _, r := range m.SeenBy {
		if r.UserId == userId {
			return true
		}
	}
	return false
}

// DeliveredToUser reports whether the message counts as delivered to the
// given user. Seen implies delivered even when deliveredTo was never
// populated for that user.
func (m *Message) DeliveredToUser(userId primitive.ObjectID) bool {
	for _, id := range m.DeliveredTo {
		if id == userId {
			return true
		}
	}
	return m.SeenByUser(userId)
}
