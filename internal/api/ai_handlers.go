package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/haichat/haichat/internal/ai"
	"github.com/haichat/haichat/internal/types"
)

type SmartRepliesRequest struct {
	Message string `json:"message"`
}

type SmartRepliesResponse struct {
	Suggestions []string `json:"suggestions"`
}

type SentimentRequest struct {
	Text string `json:"text"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

type AiChatRequest struct {
	Message string        `json:"message"`
	History []ai.ChatTurn `json:"history"`
}

type AiChatResponse struct {
	Response string `json:"response"`
}

func (s *HaiChatApp) aiChat(w http.ResponseWriter, r *http.Request) {
	var req AiChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	reply, err := s.assistant.Chat(r.Context(), req.Message, req.History)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, ai.ErrNotConfigured) {
			errResp = NewServiceUnavailableError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, AiChatResponse{Response: reply})
}

func (s *HaiChatApp) smartReplies(w http.ResponseWriter, r *http.Request) {
	var req SmartRepliesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	suggestions := s.assistant.SmartReplies(r.Context(), req.Message)
	s.writeJson(w, http.StatusOK, SmartRepliesResponse{Suggestions: suggestions})
}

func (s *HaiChatApp) analyzeSentiment(w http.ResponseWriter, r *http.Request) {
	var req SentimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sentiment, err := s.assistant.AnalyzeSentiment(r.Context(), req.Text)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, ai.ErrNotConfigured) {
			errResp = NewServiceUnavailableError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, sentiment)
}

func (s *HaiChatApp) summarizeChat(w http.ResponseWriter, r *http.Request) {
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

	messages, _, err := s.store.GetMessagesPage(r.Context(), chatId, userId, 1, 50)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	transcript := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.MessageType != types.MessageTypeText || msg.IsDeleted {
			continue
		}
		name := "Unknown"
		if msg.Sender != nil {
			name = msg.Sender.Name
		}
		transcript = append(transcript, fmt.Sprintf("%s: %s", name, msg.Content))
	}

	summary, err := s.assistant.Summarize(r.Context(), transcript)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, ai.ErrNotConfigured) {
			errResp = NewServiceUnavailableError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, SummaryResponse{Summary: summary})
}
