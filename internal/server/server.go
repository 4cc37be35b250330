package server

import (
	"context"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/haichat/haichat/internal/stats"
	"github.com/haichat/haichat/internal/store"
	"github.com/haichat/haichat/internal/types"
)

const storeOpTimeout = 10 * time.Second

// Metric names registered with the stats provider.
const (
	MetricActiveConnections = "ActiveConnections"
	MetricOnlineUsers       = "OnlineUsers"
	MetricMessagesPublished = "MessagesPublished"
	MetricCallsRelayed      = "CallsRelayed"
)

// ChatServer owns the connection registry and room table and exposes the
// fan-out operations the HTTP layer drives. All persistence side effects
// run as independent units of work off the broadcast path: a failed write
// never suppresses or delays a live event.
type ChatServer struct {
	log      *log.Logger
	store    store.ChatStore
	stats    stats.StatsProvider
	registry *Registry
	rooms    *RoomTable

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewChatServer(logger *log.Logger, st store.ChatStore, su stats.StatsProvider) (*ChatServer, error) {
	ctx, cancel := context.WithCancel(context.Background())

	cs := &ChatServer{
		log:      logger,
		store:    st,
		stats:    su,
		registry: NewRegistry(),
		rooms:    NewRoomTable(),
		baseCtx:  ctx,
		cancel:   cancel,
	}

	su.RegisterMetric(MetricActiveConnections)
	su.RegisterMetric(MetricOnlineUsers)
	su.RegisterMetric(MetricMessagesPublished)
	su.RegisterMetric(MetricCallsRelayed)

	return cs, nil
}

// Admit registers a freshly authenticated connection. If it is the user's
// first connection, the presence-online transition fires: a system-wide
// user_online broadcast and a best-effort status write-through.
func (cs *ChatServer) Admit(c *Client) {
	wentOnline := cs.registry.Admit(c)
	cs.stats.Incr(MetricActiveConnections)

	if !wentOnline {
		return
	}
	cs.stats.Incr(MetricOnlineUsers)
	cs.log.Printf("user %q is online", c.user.Name)

	cs.broadcastAllExcept(&ServerEvent{
		Type:    EvUserOnline,
		Payload: UserOnline{UserId: c.UserId(), Status: types.StatusOnline},
	}, c.id)

	userId := c.user.Id
	cs.async(func(ctx context.Context) {
		if err := cs.store.SetUserStatus(ctx, userId, types.StatusOnline, time.Time{}); err != nil {
			cs.log.Printf("set online status for %q: %v", userId.Hex(), err)
		}
	})
}

// Dismiss removes a connection from the registry and every room it joined.
// If the owning user has no connections left, the presence-offline
// transition fires with a last-seen timestamp.
func (cs *ChatServer) Dismiss(c *Client) {
	wentOffline := cs.registry.Dismiss(c.id)
	cs.rooms.DismissConnection(c)
	cs.stats.Decr(MetricActiveConnections)

	if !wentOffline {
		return
	}
	cs.stats.Decr(MetricOnlineUsers)
	cs.log.Printf("user %q is offline", c.user.Name)

	lastSeen := time.Now().UTC()
	cs.broadcastAllExcept(&ServerEvent{
		Type: EvUserOffline,
		Payload: UserOffline{
			UserId:     c.UserId(),
			Status:     types.StatusOffline,
			LastSeenAt: lastSeen,
		},
	}, c.id)

	userId := c.user.Id
	cs.async(func(ctx context.Context) {
		if err := cs.store.SetUserStatus(ctx, userId, types.StatusOffline, lastSeen); err != nil {
			cs.log.Printf("set offline status for %q: %v", userId.Hex(), err)
		}
	})
}

func (cs *ChatServer) IsOnline(userId string) bool {
	return cs.registry.IsOnline(userId)
}

// broadcastAllExcept queues the event on every live connection system-wide,
// minus the originating one.
func (cs *ChatServer) broadcastAllExcept(ev *ServerEvent, excludedConnId string) {
	for _, c := range cs.registry.Connections() {
		if c.id == excludedConnId {
			continue
		}
		c.queueEvent(ev)
	}
}

func (cs *ChatServer) authorizeJoin(chatId string, userId primitive.ObjectID) (bool, error) {
	cid, err := primitive.ObjectIDFromHex(chatId)
	if err != nil {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(cs.baseCtx, storeOpTimeout)
	defer cancel()
	return cs.store.IsParticipant(ctx, cid, userId)
}

// async runs a persistence side effect as an independent unit of work with
// its own deadline, tracked for shutdown.
func (cs *ChatServer) async(fn func(ctx context.Context)) {
	cs.wg.Add(1)
	go func() {
		defer cs.wg.Done()
		ctx, cancel := context.WithTimeout(cs.baseCtx, storeOpTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Shutdown closes every live connection and waits for in-flight
// persistence work, bounded by ctx.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("closing client connections")
	for _, c := range cs.registry.Connections() {
		c.stopOnce.Do(func() { close(c.stop) })
		c.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		cs.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		cs.cancel()
		return ctx.Err()
	}

	cs.cancel()
	return nil
}
