package server

import "sync"

// Registry tracks every live connection and which user owns it. A user is
// online iff their connection set is non-empty. All mutations happen under
// one mutex so concurrent admits and dismissals for the same user cannot
// race past an emptiness crossing: exactly one online transition per
// empty-to-non-empty, exactly one offline transition per non-empty-to-empty.
type Registry struct {
	mu        sync.Mutex
	conns     map[string]*Client            // connection id -> client
	userConns map[string]map[string]*Client // user id -> connection id -> client
}

func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[string]*Client),
		userConns: make(map[string]map[string]*Client),
	}
}

// Admit registers a connection. Idempotent per connection id. The returned
// flag is true when this is the user's first live connection, i.e. the
// caller must fire the presence-online transition.
func (r *Registry) Admit(c *Client) (wentOnline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.id]; ok {
		return false
	}
	r.conns[c.id] = c

	userId := c.UserId()
	set, ok := r.userConns[userId]
	if !ok {
		set = make(map[string]*Client)
		r.userConns[userId] = set
	}
	set[c.id] = c

	return len(set) == 1
}

// Dismiss removes a connection by id. Idempotent. The returned flag is true
// when the owning user's connection set became empty, i.e. the caller must
// fire the presence-offline transition.
func (r *Registry) Dismiss(connId string) (wentOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connId]
	if !ok {
		return false
	}
	delete(r.conns, connId)

	userId := c.UserId()
	set, ok := r.userConns[userId]
	if !ok {
		return false
	}
	delete(set, connId)
	if len(set) == 0 {
		delete(r.userConns, userId)
		return true
	}
	return false
}

func (r *Registry) IsOnline(userId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.userConns[userId]) > 0
}

// ConnectionsOf returns a snapshot of the user's live connections.
func (r *Registry) ConnectionsOf(userId string) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := make([]*Client, 0, len(r.userConns[userId]))
	for _, c := range r.userConns[userId] {
		clients = append(clients, c)
	}
	return clients
}

// Connections returns a snapshot of every live connection, used for
// system-wide presence broadcasts.
func (r *Registry) Connections() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := make([]*Client, 0, len(r.conns))
	for _, c := range r.conns {
		clients = append(clients, c)
	}
	return clients
}

func (r *Registry) NumConnections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Registry) NumOnlineUsers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.userConns)
}
