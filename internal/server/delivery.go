package server

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/haichat/haichat/internal/types"
)

// AckStatus is the acknowledgement state of a message from its sender's
// point of view. The per-recipient lifecycle is sent -> delivered -> seen
// and only ever moves forward.
type AckStatus string

const (
	AckSent      AckStatus = "sent"
	AckDelivered AckStatus = "delivered"
	AckSeen      AckStatus = "seen"
)

// MessageStatus derives the display status of a message for its sender.
// Seen as soon as any other participant saw it; delivered once every other
// participant has it (seen implying delivered even when the delivered set
// was never populated for that user); sent otherwise.
func MessageStatus(msg *types.Message, participants []primitive.ObjectID) AckStatus {
	others := 0
	delivered := 0
	for _, p := range participants {
		if p == msg.SenderId {
			continue
		}
		others++
		if msg.SeenByUser(p) {
			return AckSeen
		}
		if msg.DeliveredToUser(p) {
			delivered++
		}
	}

	if others > 0 && delivered >= others {
		return AckDelivered
	}
	return AckSent
}

// MarkChatSeen records the viewer as having seen every qualifying message
// in the chat and, only when at least one message actually changed state,
// broadcasts messages_seen to the chat's room.
func (cs *ChatServer) MarkChatSeen(ctx context.Context, chatId, userId primitive.ObjectID) error {
	modified, err := cs.store.MarkChatSeen(ctx, chatId, userId, time.Now().UTC())
	if err != nil {
		return err
	}

	if modified > 0 {
		cs.NotifySeen(chatId.Hex(), userId.Hex())
	}
	return nil
}

// asyncMarkSeen is the connection-driven variant of MarkChatSeen. It runs
// off the read pump and suppresses the echo to the originating connection.
func (cs *ChatServer) asyncMarkSeen(chatId string, userId primitive.ObjectID, originConnId string) {
	cid, err := primitive.ObjectIDFromHex(chatId)
	if err != nil {
		return
	}

	cs.async(func(ctx context.Context) {
		modified, err := cs.store.MarkChatSeen(ctx, cid, userId, time.Now().UTC())
		if err != nil {
			cs.log.Printf("mark seen for chat %q: %v", chatId, err)
			return
		}

		if modified > 0 {
			cs.rooms.PublishExcluding(chatId, &ServerEvent{
				Type:    EvMessagesSeen,
				Payload: MessagesSeen{ChatId: chatId, UserId: userId.Hex()},
			}, originConnId)
		}
	})
}

// AutoSeenOnFetch marks the fetched messages as seen by the viewer: any
// message not sent by them, not already seen, and not tombstoned moves to
// seen. Broadcasts messages_seen only when something changed. Used by the
// paginated chat fetch so opening a chat acknowledges its messages.
func (cs *ChatServer) AutoSeenOnFetch(ctx context.Context, chatId, viewerId primitive.ObjectID, messages []types.Message) error {
	var unseen []primitive.ObjectID
	for i := range messages {
		m := &messages[i]
		if m.SenderId == viewerId || m.IsDeleted || m.SeenByUser(viewerId) {
			continue
		}
		unseen = append(unseen, m.Id)
	}

	if len(unseen) == 0 {
		return nil
	}

	if err := cs.store.AddSeen(ctx, unseen, viewerId, time.Now().UTC()); err != nil {
		return err
	}

	cs.NotifySeen(chatId.Hex(), viewerId.Hex())
	return nil
}
