package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/haichat/haichat/internal/stats"
	"github.com/haichat/haichat/internal/store"
	"github.com/haichat/haichat/internal/testutil"
	"github.com/haichat/haichat/internal/types"
)

func TestNotifyNewMessage(t *testing.T) {
	t.Run("publishes to room and marks online recipients delivered", func(t *testing.T) {
		sender := testUser()
		online := testUser()
		offline := testUser()
		chatId := primitive.NewObjectID()
		msg := &types.Message{
			Id:       primitive.NewObjectID(),
			SenderId: sender.Id,
			ChatId:   chatId,
			Content:  "hey",
		}

		delivered := make(chan []primitive.ObjectID, 1)
		st := &store.MockChatStore{}
		st.On("AddDelivered", mock.Anything, msg.Id, mock.Anything).
			Run(func(args mock.Arguments) { delivered <- args.Get(2).([]primitive.ObjectID) }).
			Return(nil).Once()
		defer st.AssertExpectations(t)

		su := &stats.MockStatsUpdater{}
		su.On("RegisterMetric", mock.Anything).Times(4)
		su.On("Incr", MetricMessagesPublished).Once()
		defer su.AssertExpectations(t)

		cs, err := NewChatServer(testutil.TestLogger(t), st, su)
		assert.NoError(t, err)

		senderConn := serverTestClient(t, cs, "sender-conn", sender)
		onlineConn := serverTestClient(t, cs, "online-conn", online)
		cs.registry.Admit(senderConn)
		cs.registry.Admit(onlineConn)
		cs.rooms.Join(senderConn, chatId.Hex())
		cs.rooms.Join(onlineConn, chatId.Hex())

		cs.NotifyNewMessage(msg, []primitive.ObjectID{sender.Id, online.Id, offline.Id})

		select {
		case ids := <-delivered:
			assert.Equal(t, []primitive.ObjectID{online.Id}, ids,
				"expected only the online recipient marked delivered")
		case <-time.After(time.Second):
			t.Fatal("expected delivery write")
		}

		for _, c := range []*Client{senderConn, onlineConn} {
			evs := drainEvents(c)
			if assert.Len(t, evs, 1, "expected room subscriber to receive new_message") {
				assert.Equal(t, EvNewMessage, evs[0].Type)
				payload := evs[0].Payload.(NewMessage)
				assert.Equal(t, msg, payload.Message)
				assert.Equal(t, chatId.Hex(), payload.ChatId)
			}
		}
	})

	t.Run("no recipients online skips delivery write", func(t *testing.T) {
		sender := testUser()
		offline := testUser()
		msg := &types.Message{
			Id:       primitive.NewObjectID(),
			SenderId: sender.Id,
			ChatId:   primitive.NewObjectID(),
		}

		st := &store.MockChatStore{}
		defer st.AssertExpectations(t)

		cs := newTestChatServer(t, st, newPermissiveStats())
		cs.NotifyNewMessage(msg, []primitive.ObjectID{sender.Id, offline.Id})
	})

	t.Run("failed delivery write does not suppress publish", func(t *testing.T) {
		sender := testUser()
		recipient := testUser()
		chatId := primitive.NewObjectID()
		msg := &types.Message{
			Id:       primitive.NewObjectID(),
			SenderId: sender.Id,
			ChatId:   chatId,
		}

		st := &store.MockChatStore{}
		st.On("AddDelivered", mock.Anything, msg.Id, mock.Anything).
			Return(errors.New("write failed")).Once()
		defer st.AssertExpectations(t)

		cs := newTestChatServer(t, st, newPermissiveStats())
		conn := serverTestClient(t, cs, "conn-1", recipient)
		cs.registry.Admit(conn)
		cs.rooms.Join(conn, chatId.Hex())

		cs.NotifyNewMessage(msg, []primitive.ObjectID{sender.Id, recipient.Id})

		evs := drainEvents(conn)
		assert.Len(t, evs, 1, "expected publish despite failed delivery write")

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		cs.registry.Dismiss(conn.id)
		assert.NoError(t, cs.Shutdown(ctx))
	})
}

func TestNotifyMessageDeleted(t *testing.T) {
	chatId := primitive.NewObjectID()
	messageId := primitive.NewObjectID()

	t.Run("broadcasts delete-for-everyone", func(t *testing.T) {
		cs := newTestChatServer(t, &store.MockChatStore{}, newPermissiveStats())
		sub := serverTestClient(t, cs, "conn-1", testUser())
		cs.rooms.Join(sub, chatId.Hex())

		cs.NotifyMessageDeleted(messageId.Hex(), chatId.Hex(), true)

		evs := drainEvents(sub)
		if assert.Len(t, evs, 1, "expected message_deleted broadcast") {
			assert.Equal(t, EvMessageDeleted, evs[0].Type)
			payload := evs[0].Payload.(MessageDeleted)
			assert.Equal(t, messageId.Hex(), payload.MessageId)
			assert.True(t, payload.DeleteForEveryone)
		}
	})

	t.Run("per-user delete is silent", func(t *testing.T) {
		cs := newTestChatServer(t, &store.MockChatStore{}, newPermissiveStats())
		sub := serverTestClient(t, cs, "conn-1", testUser())
		cs.rooms.Join(sub, chatId.Hex())

		cs.NotifyMessageDeleted(messageId.Hex(), chatId.Hex(), false)
		assert.Empty(t, drainEvents(sub), "expected no broadcast for per-user delete")
	})
}
