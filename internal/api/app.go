package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"

	"github.com/haichat/haichat/internal/ai"
	"github.com/haichat/haichat/internal/config"
	"github.com/haichat/haichat/internal/server"
	"github.com/haichat/haichat/internal/store"
)

type HaiChatApp struct {
	log            *log.Logger
	store          store.ChatStore
	mux            *http.Server
	cs             *server.ChatServer
	assistant      *ai.Assistant
	sid            *shortid.Shortid
	signingKey     []byte
	allowedOrigins []string
}

func NewHaiChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, st store.ChatStore, assistant *ai.Assistant, cfg *config.Config) (*HaiChatApp, error) {
	sid, err := shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		return nil, fmt.Errorf("shortid: %w", err)
	}

	s := &HaiChatApp{
		log:            logger,
		store:          st,
		cs:             cs,
		assistant:      assistant,
		sid:            sid,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("GET /api/users", s.authMiddleware(s.searchUsers))
	mux.Handle("GET /api/users/{userId}", s.authMiddleware(s.getUserById))
	mux.Handle("POST /api/chats/access", s.authMiddleware(s.accessChat))
	mux.Handle("GET /api/chats", s.authMiddleware(s.getMyChats))
	mux.Handle("GET /api/chats/{chatId}", s.authMiddleware(s.getChatById))
	mux.Handle("POST /api/chats/group", s.authMiddleware(s.createGroupChat))
	mux.Handle("PUT /api/chats/group/{chatId}", s.authMiddleware(s.updateGroupChat))
	mux.Handle("DELETE /api/chats/group/{chatId}/leave", s.authMiddleware(s.leaveGroupChat))
	mux.Handle("PUT /api/chats/{chatId}/mute", s.authMiddleware(s.muteChat))
	mux.Handle("DELETE /api/chats/{chatId}/mute", s.authMiddleware(s.unmuteChat))
	mux.Handle("POST /api/messages", s.authMiddleware(s.sendMessage))
	mux.Handle("GET /api/messages/{chatId}", s.authMiddleware(s.getMessages))
	mux.Handle("PUT /api/messages/{chatId}/seen", s.authMiddleware(s.markSeen))
	mux.Handle("DELETE /api/messages/{messageId}", s.authMiddleware(s.deleteMessage))
	mux.Handle("POST /api/ai/chat", s.authMiddleware(s.aiChat))
	mux.Handle("POST /api/ai/replies", s.authMiddleware(s.smartReplies))
	mux.Handle("POST /api/ai/sentiment", s.authMiddleware(s.analyzeSentiment))
	mux.Handle("GET /api/ai/summary/{chatId}", s.authMiddleware(s.summarizeChat))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s, nil
}

func (s *HaiChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *HaiChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *HaiChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
