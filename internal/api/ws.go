package api

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/haichat/haichat/internal/server"
)

// serveWs upgrades an authenticated request to a websocket connection and
// hands it to the chat server. Each browser tab gets its own connection id.
func (s *HaiChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.store.GetAccountById(r.Context(), userId)
	if err != nil {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return slices.Contains(s.allowedOrigins, origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("websocket upgrade:", err)
		return
	}

	connId, err := s.sid.Generate()
	if err != nil {
		s.log.Println("generate connection id:", err)
		conn.Close()
		return
	}

	client := server.NewClient(connId, user, conn, s.cs, s.log)
	s.cs.Admit(client)

	go client.Write()
	go client.Read()
}
