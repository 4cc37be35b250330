package server

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/haichat/haichat/internal/types"
)

// NotifyNewMessage fans a persisted message out to its chat room and marks
// it delivered for every recipient currently online. The delivery write and
// the room publish are independent effects: the message is already durable,
// so a failed delivery write is logged and swallowed while the publish
// proceeds regardless.
func (cs *ChatServer) NotifyNewMessage(msg *types.Message, participants []primitive.ObjectID) {
	var online []primitive.ObjectID
	for _, p := range participants {
		if p == msg.SenderId {
			continue
		}
		if cs.registry.IsOnline(p.Hex()) {
			online = append(online, p)
		}
	}

	if len(online) > 0 {
		msgId := msg.Id
		cs.async(func(ctx context.Context) {
			if err := cs.store.AddDelivered(ctx, msgId, online); err != nil {
				cs.log.Printf("mark delivered for message %q: %v", msgId.Hex(), err)
			}
		})
	}

	chatId := msg.ChatId.Hex()
	cs.rooms.Publish(chatId, &ServerEvent{
		Type:    EvNewMessage,
		Payload: NewMessage{Message: msg, ChatId: chatId},
	})
	cs.stats.Incr(MetricMessagesPublished)
}

// NotifyMessageDeleted announces a deletion to the chat room. For
// per-user deletes nothing is broadcast; the delete only affects the
// requesting user's own reads.
func (cs *ChatServer) NotifyMessageDeleted(messageId, chatId string, forEveryone bool) {
	if !forEveryone {
		return
	}

	cs.rooms.Publish(chatId, &ServerEvent{
		Type: EvMessageDeleted,
		Payload: MessageDeleted{
			MessageId:         messageId,
			ChatId:            chatId,
			DeleteForEveryone: true,
		},
	})
}

// NotifySeen announces that a user has seen a chat's messages.
func (cs *ChatServer) NotifySeen(chatId, userId string) {
	cs.rooms.Publish(chatId, &ServerEvent{
		Type:    EvMessagesSeen,
		Payload: MessagesSeen{ChatId: chatId, UserId: userId},
	})
}
