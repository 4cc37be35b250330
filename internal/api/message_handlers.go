package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/haichat/haichat/internal/store"
	"github.com/haichat/haichat/internal/types"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 50
)

type SendMessageRequest struct {
	ChatId        string            `json:"chat_id"`
	Content       string            `json:"content"`
	MessageType   types.MessageType `json:"message_type"`
	MediaUrl      string            `json:"media_url"`
	FileName      string            `json:"file_name"`
	FileSize      int64             `json:"file_size"`
	ReplyToId     string            `json:"reply_to"`
	IsAiGenerated bool              `json:"is_ai_generated"`
}

type DeleteMessageRequest struct {
	ForEveryone bool `json:"for_everyone"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type MessagesResponse struct {
	Messages   []types.Message `json:"messages"`
	Pagination Pagination      `json:"pagination"`
}

func (s *HaiChatApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chatId, err := primitive.ObjectIDFromHex(req.ChatId)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.MessageType == "" {
		req.MessageType = types.MessageTypeText
	}
	if req.MessageType == types.MessageTypeText && req.Content == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var replyToId primitive.ObjectID
	if req.ReplyToId != "" {
		replyToId, err = primitive.ObjectIDFromHex(req.ReplyToId)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	chat, err := s.store.GetChatById(r.Context(), chatId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, store.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !containsId(chat.Participants, userId) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.store.CreateMessage(r.Context(), store.CreateMessageParams{
		SenderId:      userId,
		ChatId:        chatId,
		Content:       req.Content,
		MessageType:   req.MessageType,
		MediaUrl:      req.MediaUrl,
		FileName:      req.FileName,
		FileSize:      req.FileSize,
		ReplyToId:     replyToId,
		IsAiGenerated: req.IsAiGenerated,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.store.SetLastMessage(r.Context(), chatId, msg.Id); err != nil {
		s.log.Println("set last message:", err)
	}

	s.cs.NotifyNewMessage(&msg, chat.Participants)

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *HaiChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chatId, err := primitive.ObjectIDFromHex(r.PathValue("chatId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	isParticipant, err := s.store.IsParticipant(r.Context(), chatId, userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if !isParticipant {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultPageLimit)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	messages, total, err := s.store.GetMessagesPage(r.Context(), chatId, userId, page, limit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// fetching a page marks the viewer's unseen messages as seen
	if err := s.cs.AutoSeenOnFetch(r.Context(), chatId, userId, messages); err != nil {
		s.log.Println("auto seen:", err)
	}

	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}

	s.writeJson(w, http.StatusOK, MessagesResponse{
		Messages: messages,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	})
}

func (s *HaiChatApp) markSeen(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chatId, err := primitive.ObjectIDFromHex(r.PathValue("chatId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	isParticipant, err := s.store.IsParticipant(r.Context(), chatId, userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if !isParticipant {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.cs.MarkChatSeen(r.Context(), chatId, userId); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HaiChatApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messageId, err := primitive.ObjectIDFromHex(r.PathValue("messageId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req DeleteMessageRequest
	if r.Body != nil {
		// body is optional, absence means delete for self
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	msg, err := s.store.GetMessageById(r.Context(), messageId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, store.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.ForEveryone {
		if msg.SenderId != userId {
			errResp := NewForbiddenError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		if err := s.store.DeleteMessageForEveryone(r.Context(), messageId); err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	} else {
		if err := s.store.DeleteMessageForUser(r.Context(), messageId, userId); err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	s.cs.NotifyMessageDeleted(messageId.Hex(), msg.ChatId.Hex(), req.ForEveryone)

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
