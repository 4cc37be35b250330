package server

import "sync"

// room is one conversation-scoped subscription group. Publishing holds the
// room mutex, so events published to the same room reach every subscriber's
// send queue in publish order.
type room struct {
	mu   sync.Mutex
	subs map[string]*Client // connection id -> client
}

// RoomTable manages rooms keyed by chat id. Rooms are created lazily on
// first join and dropped once their last subscriber leaves.
type RoomTable struct {
	mu    sync.Mutex
	rooms map[string]*room
}

func NewRoomTable() *RoomTable {
	return &RoomTable{rooms: make(map[string]*room)}
}

// Join subscribes the connection to the room, creating the room if needed.
// No-op if already joined. Authorization is the caller's responsibility.
func (rt *RoomTable) Join(c *Client, roomId string) {
	for {
		rt.mu.Lock()
		r, ok := rt.rooms[roomId]
		if !ok {
			r = &room{subs: make(map[string]*Client)}
			rt.rooms[roomId] = r
		}
		rt.mu.Unlock()

		r.mu.Lock()
		r.subs[c.id] = c
		r.mu.Unlock()

		// A concurrent last leave may have collected the room between the
		// two locks, leaving the add stranded in a dropped object. Retry
		// against the table until the room we added to is the live one.
		rt.mu.Lock()
		current := rt.rooms[roomId] == r
		rt.mu.Unlock()
		if current {
			break
		}
	}

	c.addRoom(roomId)
}

// Leave removes the connection from the room. No-op if absent.
func (rt *RoomTable) Leave(c *Client, roomId string) {
	rt.mu.Lock()
	r, ok := rt.rooms[roomId]
	rt.mu.Unlock()
	if !ok {
		return
	}

	r.mu.Lock()
	delete(r.subs, c.id)
	empty := len(r.subs) == 0
	r.mu.Unlock()

	c.delRoom(roomId)

	if empty {
		rt.collect(roomId)
	}
}

// DismissConnection removes the connection from every room it had joined,
// so a dismissed connection leaves no dangling subscriptions behind.
func (rt *RoomTable) DismissConnection(c *Client) {
	for _, roomId := range c.joinedRooms() {
		rt.Leave(c, roomId)
	}
}

// collect drops the room if it is still empty. Rechecked under both locks
// since a join may have raced the leave that emptied it.
func (rt *RoomTable) collect(roomId string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	r, ok := rt.rooms[roomId]
	if !ok {
		return
	}

	r.mu.Lock()
	empty := len(r.subs) == 0
	r.mu.Unlock()

	if empty {
		delete(rt.rooms, roomId)
	}
}

// Publish delivers the event to every connection currently subscribed to
// the room, in publish order.
func (rt *RoomTable) Publish(roomId string, ev *ServerEvent) {
	rt.publish(roomId, ev, "")
}

// PublishExcluding is Publish minus one connection, used to suppress echo
// of typing and seen events to the originating connection.
func (rt *RoomTable) PublishExcluding(roomId string, ev *ServerEvent, excludedConnId string) {
	rt.publish(roomId, ev, excludedConnId)
}

func (rt *RoomTable) publish(roomId string, ev *ServerEvent, excludedConnId string) {
	rt.mu.Lock()
	r, ok := rt.rooms[roomId]
	rt.mu.Unlock()
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.subs {
		if id == excludedConnId {
			continue
		}
		c.queueEvent(ev)
	}
}

// Subscribers returns a snapshot of connection ids subscribed to the room.
func (rt *RoomTable) Subscribers(roomId string) []string {
	rt.mu.Lock()
	r, ok := rt.rooms[roomId]
	rt.mu.Unlock()
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	return ids
}

func (rt *RoomTable) NumRooms() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.rooms)
}
