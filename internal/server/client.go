package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haichat/haichat/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// inboundHandlers is the dispatch table from inbound event kind to handler.
// A connection's events are handled in the order received; nothing here
// shares mutable state through closures.
var inboundHandlers = map[string]func(c *Client, payload json.RawMessage){
	EvJoinChat:     (*Client).handleJoinChat,
	EvLeaveChat:    (*Client).handleLeaveChat,
	EvTypingStart:  (*Client).handleTypingStart,
	EvTypingStop:   (*Client).handleTypingStop,
	EvMarkSeen:     (*Client).handleMarkSeen,
	EvCallUser:     (*Client).handleCallUser,
	EvCallAnswer:   (*Client).handleCallAnswer,
	EvIceCandidate: (*Client).handleIceCandidate,
	EvCallEnd:      (*Client).handleCallEnd,
}

// Client is one live connection session. It owns its identity and joined
// room set; the registry and room table hold it only by reference.
type Client struct {
	id        string
	user      types.User
	conn      *websocket.Conn
	cs        *ChatServer
	log       *log.Logger
	send      chan *ServerEvent
	rooms     map[string]struct{}
	roomsLock sync.Mutex
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewClient(id string, user types.User, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	return &Client{
		id:    id,
		user:  user,
		conn:  conn,
		cs:    cs,
		log:   l,
		send:  make(chan *ServerEvent, 256),
		rooms: make(map[string]struct{}),
		stop:  make(chan struct{}),
	}
}

func (c *Client) Id() string { return c.id }

func (c *Client) UserId() string { return c.user.Id.Hex() }

func (c *Client) User() types.User { return c.user }

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(ev)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.writeMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.log.Println("error parsing event:", err)
			c.queueEvent(errEvent("invalid event format"))
			continue
		}

		handler, ok := inboundHandlers[ev.Type]
		if !ok {
			c.log.Printf("unknown event type %q from user %q", ev.Type, c.user.Name)
			continue
		}
		handler(c, ev.Payload)
	}
}

// queueEvent enqueues an event for the write pump. A full queue drops the
// event rather than blocking the publisher.
func (c *Client) queueEvent(ev *ServerEvent) bool {
	select {
	case <-c.stop:
		return false
	default:
	}

	select {
	case c.send <- ev:
		return true
	default:
		c.log.Printf("send queue full for connection %q, dropping %s", c.id, ev.Type)
		return false
	}
}

func (c *Client) writeMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("ws: write: %v", err)
		}
		return false
	}
	return true
}

func (c *Client) cleanup() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.cs.Dismiss(c)
}

func (c *Client) addRoom(roomId string) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()
	c.rooms[roomId] = struct{}{}
}

func (c *Client) delRoom(roomId string) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()
	delete(c.rooms, roomId)
}

func (c *Client) inRoom(roomId string) bool {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()
	_, ok := c.rooms[roomId]
	return ok
}

func (c *Client) joinedRooms() []string {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()

	ids := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	return ids
}

func (c *Client) handleJoinChat(payload json.RawMessage) {
	var ref ChatRef
	if err := json.Unmarshal(payload, &ref); err != nil || ref.ChatId == "" {
		c.queueEvent(errEvent("join_chat requires chat_id"))
		return
	}

	ok, err := c.cs.authorizeJoin(ref.ChatId, c.user.Id)
	if err != nil {
		c.log.Printf("join authorization for chat %q: %v", ref.ChatId, err)
		c.queueEvent(errEvent("failed to join chat"))
		return
	}
	if !ok {
		c.queueEvent(errEvent("not a participant of this chat"))
		return
	}

	c.cs.rooms.Join(c, ref.ChatId)
}

func (c *Client) handleLeaveChat(payload json.RawMessage) {
	var ref ChatRef
	if err := json.Unmarshal(payload, &ref); err != nil || ref.ChatId == "" {
		return
	}

	c.cs.rooms.Leave(c, ref.ChatId)
}

func (c *Client) handleTypingStart(payload json.RawMessage) {
	var ref ChatRef
	if err := json.Unmarshal(payload, &ref); err != nil || ref.ChatId == "" {
		return
	}
	if !c.inRoom(ref.ChatId) {
		return
	}

	c.cs.rooms.PublishExcluding(ref.ChatId, &ServerEvent{
		Type: EvUserTyping,
		Payload: UserTyping{
			ChatId:   ref.ChatId,
			UserId:   c.UserId(),
			UserName: c.user.Name,
		},
	}, c.id)
}

func (c *Client) handleTypingStop(payload json.RawMessage) {
	var ref ChatRef
	if err := json.Unmarshal(payload, &ref); err != nil || ref.ChatId == "" {
		return
	}
	if !c.inRoom(ref.ChatId) {
		return
	}

	c.cs.rooms.PublishExcluding(ref.ChatId, &ServerEvent{
		Type: EvUserStoppedTyping,
		Payload: UserTyping{
			ChatId: ref.ChatId,
			UserId: c.UserId(),
		},
	}, c.id)
}

func (c *Client) handleMarkSeen(payload json.RawMessage) {
	var ref ChatRef
	if err := json.Unmarshal(payload, &ref); err != nil || ref.ChatId == "" {
		return
	}

	// The seen write is I/O; run it off the read pump so it cannot stall
	// this connection's event dispatch. The broadcast follows completion.
	c.cs.asyncMarkSeen(ref.ChatId, c.user.Id, c.id)
}

func (c *Client) handleCallUser(payload json.RawMessage) {
	var req CallRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.TargetUserId == "" {
		c.queueEvent(errEvent("call_user requires target_user_id"))
		return
	}

	c.cs.Relay(req.TargetUserId, &ServerEvent{
		Type: EvIncomingCall,
		Payload: IncomingCall{
			FromUserId: c.UserId(),
			FromName:   c.user.Name,
			FromAvatar: c.user.Avatar,
			Offer:      req.Offer,
			CallType:   req.CallType,
		},
	})
}

func (c *Client) handleCallAnswer(payload json.RawMessage) {
	var req CallRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.TargetUserId == "" {
		return
	}

	c.cs.Relay(req.TargetUserId, &ServerEvent{
		Type: EvCallAnswered,
		Payload: CallAnswered{
			Answer:     req.Answer,
			FromUserId: c.UserId(),
		},
	})
}

func (c *Client) handleIceCandidate(payload json.RawMessage) {
	var req CallRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.TargetUserId == "" {
		return
	}

	c.cs.Relay(req.TargetUserId, &ServerEvent{
		Type: EvIceCandidate,
		Payload: IceCandidate{
			Candidate:  req.Candidate,
			FromUserId: c.UserId(),
		},
	})
}

func (c *Client) handleCallEnd(payload json.RawMessage) {
	var req CallRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.TargetUserId == "" {
		return
	}

	c.cs.Relay(req.TargetUserId, &ServerEvent{
		Type:    EvCallEnded,
		Payload: CallEnded{FromUserId: c.UserId()},
	})
}
