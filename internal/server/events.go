package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/haichat/haichat/internal/types"
)

// Inbound event kinds accepted from connections.
const (
	EvJoinChat    = "join_chat"
	EvLeaveChat   = "leave_chat"
	EvTypingStart = "typing_start"
	EvTypingStop  = "typing_stop"
	EvMarkSeen    = "mark_seen"
	EvCallUser    = "call_user"
	EvCallAnswer  = "call_answer"
	EvCallEnd     = "call_end"
)

// Outbound event kinds emitted to connections.
const (
	EvUserOnline        = "user_online"
	EvUserOffline       = "user_offline"
	EvUserTyping        = "user_typing"
	EvUserStoppedTyping = "user_stopped_typing"
	EvNewMessage        = "new_message"
	EvMessageDeleted    = "message_deleted"
	EvMessagesSeen      = "messages_seen"
	EvIncomingCall      = "incoming_call"
	EvCallAnswered      = "call_answered"
	EvIceCandidate      = "ice_candidate"
	EvCallEnded         = "call_ended"
	EvError             = "error"
)

// ClientEvent is the envelope for everything a connection sends us. The
// payload stays raw until the dispatch table picks a decoder for the kind.
type ClientEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerEvent is the envelope for everything we send to a connection.
type ServerEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type ChatRef struct {
	ChatId string `json:"chat_id"`
}

type CallRequest struct {
	TargetUserId string          `json:"target_user_id"`
	Offer        json.RawMessage `json:"offer,omitempty"`
	Answer       json.RawMessage `json:"answer,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
	CallType     string          `json:"call_type,omitempty"`
}

type UserOnline struct {
	UserId string           `json:"user_id"`
	Status types.UserStatus `json:"status"`
}

type UserOffline struct {
	UserId     string           `json:"user_id"`
	Status     types.UserStatus `json:"status"`
	LastSeenAt time.Time        `json:"last_seen_at"`
}

type UserTyping struct {
	ChatId   string `json:"chat_id"`
	UserId   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
}

type NewMessage struct {
	Message *types.Message `json:"message"`
	ChatId  string         `json:"chat_id"`
}

type MessageDeleted struct {
	MessageId         string `json:"message_id"`
	ChatId            string `json:"chat_id"`
	DeleteForEveryone bool   `json:"delete_for_everyone"`
}

type MessagesSeen struct {
	ChatId string `json:"chat_id"`
	UserId string `json:"user_id"`
}

type IncomingCall struct {
	FromUserId string          `json:"from_user_id"`
	FromName   string          `json:"from_name,omitempty"`
	FromAvatar string          `json:"from_avatar,omitempty"`
	Offer      json.RawMessage `json:"offer,omitempty"`
	CallType   string          `json:"call_type,omitempty"`
}

type CallAnswered struct {
	Answer     json.RawMessage `json:"answer,omitempty"`
	FromUserId string          `json:"from_user_id"`
}

type IceCandidate struct {
	Candidate  json.RawMessage `json:"candidate,omitempty"`
	FromUserId string          `json:"from_user_id"`
}

type CallEnded struct {
	FromUserId string `json:"from_user_id"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

func errEvent(format string, args ...any) *ServerEvent {
	return &ServerEvent{
		Type:    EvError,
		Payload: ErrorEvent{Message: fmt.Sprintf(format, args...)},
	}
}
