package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/haichat/haichat/internal/store"
)

type AccessChatRequest struct {
	UserId string `json:"user_id"`
}

type CreateGroupChatRequest struct {
	GroupName    string   `json:"group_name"`
	Description  string   `json:"description"`
	Participants []string `json:"participants"`
}

type UpdateGroupChatRequest struct {
	GroupName     string   `json:"group_name"`
	Description   *string  `json:"description"`
	GroupAvatar   string   `json:"group_avatar"`
	AddMembers    []string `json:"add_members"`
	RemoveMembers []string `json:"remove_members"`
}

// accessChat returns the direct chat between the requester and the given
// user, creating it if it does not exist. Both orders of the pair, and the
// degenerate self-chat, resolve to the same chat.
func (s *HaiChatApp) accessChat(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req AccessChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	otherId, err := primitive.ObjectIDFromHex(req.UserId)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	participants := []primitive.ObjectID{userId}
	if otherId != userId {
		participants = append(participants, otherId)
	}

	chat, err := s.store.FindOrCreateDirectChat(r.Context(), participants)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, chat)
}

func (s *HaiChatApp) getMyChats(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chats, err := s.store.ChatsForUser(r.Context(), userId)
	if err != nil {
		s.log.Println("list chats:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, chats)
}

func (s *HaiChatApp) createGroupChat(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateGroupChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.GroupName == "" || len(req.Participants) < 2 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	participants, err := parseObjectIds(req.Participants)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if !containsId(participants, userId) {
		participants = append(participants, userId)
	}

	chat, err := s.store.CreateGroupChat(r.Context(), store.CreateGroupChatParams{
		GroupName:    req.GroupName,
		Description:  req.Description,
		Admin:        userId,
		Participants: participants,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, chat)
}

func (s *HaiChatApp) updateGroupChat(w http.ResponseWriter, r *http.Request) {
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

	chat, err := s.store.GetChatById(r.Context(), chatId)
	if err != nil || !chat.IsGroupChat {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// only the group admin can update the group
	if chat.GroupAdmin != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateGroupChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	addMembers, err := parseObjectIds(req.AddMembers)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	removeMembers, err := parseObjectIds(req.RemoveMembers)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	updated, err := s.store.UpdateGroupChat(r.Context(), store.UpdateGroupChatParams{
		ChatId:        chatId,
		GroupName:     req.GroupName,
		Description:   req.Description,
		GroupAvatar:   req.GroupAvatar,
		AddMembers:    addMembers,
		RemoveMembers: removeMembers,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, updated)
}

func (s *HaiChatApp) leaveGroupChat(w http.ResponseWriter, r *http.Request) {
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

	if err := s.store.LeaveGroupChat(r.Context(), chatId, userId); err != nil {
		var errResp *ApiError
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNotGroupChat) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HaiChatApp) getChatById(w http.ResponseWriter, r *http.Request) {
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

	s.writeJson(w, http.StatusOK, chat)
}

func (s *HaiChatApp) muteChat(w http.ResponseWriter, r *http.Request) {
	s.setChatMuted(w, r, true)
}

func (s *HaiChatApp) unmuteChat(w http.ResponseWriter, r *http.Request) {
	s.setChatMuted(w, r, false)
}

func (s *HaiChatApp) setChatMuted(w http.ResponseWriter, r *http.Request, muted bool) {
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

	if err := s.store.SetChatMuted(r.Context(), chatId, userId, muted); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseObjectIds(hexIds []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexIds))
	for _, hex := range hexIds {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func containsId(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, other := range ids {
		if other == id {
			return true
		}
	}
	return false
}
