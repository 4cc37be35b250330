package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/haichat/haichat/internal/types"
)

const (
	usersCollection    = "users"
	chatsCollection    = "chats"
	messagesCollection = "messages"
)

type MongoChatStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoChatStore(ctx context.Context, uri, dbName string) (*MongoChatStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &MongoChatStore{
		client: client,
		db:     client.Database(dbName),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}

	return s, nil
}

// ensureIndexes creates the indexes the hot queries depend on: chat lookup
// by participant, message pages per chat in reverse creation order, and the
// unique account email.
func (s *MongoChatStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users: %w", err)
	}

	_, err = s.chats().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "participants", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("chats: %w", err)
	}

	_, err = s.messages().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}

	return nil
}

func (s *MongoChatStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoChatStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoChatStore) users() *mongo.Collection    { return s.db.Collection(usersCollection) }
func (s *MongoChatStore) chats() *mongo.Collection    { return s.db.Collection(chatsCollection) }
func (s *MongoChatStore) messages() *mongo.Collection { return s.db.Collection(messagesCollection) }

func mapErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *MongoChatStore) CreateAccount(ctx context.Context, params CreateAccountParams) (types.User, error) {
	now := time.Now().UTC()
	user := types.User{
		Id:           primitive.NewObjectID(),
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Bio:          "Hey there! I am using HAI Chat.",
		Status:       types.StatusOffline,
		LastSeen:     now,
		AiEnabled:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.users().InsertOne(ctx, user); err != nil {
		return types.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *MongoChatStore) GetAccountById(ctx context.Context, userId primitive.ObjectID) (types.User, error) {
	var user types.User
	err := s.users().FindOne(ctx, bson.M{"_id": userId}).Decode(&user)
	return user, mapErr(err)
}

func (s *MongoChatStore) GetAccountByEmail(ctx context.Context, email string) (types.User, error) {
	var user types.User
	err := s.users().FindOne(ctx, bson.M{"email": email}).Decode(&user)
	return user, mapErr(err)
}

func (s *MongoChatStore) UpdateAccount(ctx context.Context, params UpdateAccountParams) (types.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if params.Name != "" {
		set["name"] = params.Name
	}
	if params.Bio != "" {
		set["bio"] = params.Bio
	}
	if params.Avatar != "" {
		set["avatar"] = params.Avatar
	}
	if params.AiEnabled != nil {
		set["aiEnabled"] = *params.AiEnabled
	}
	if params.AutoReplyEnabled != nil {
		set["autoReplyEnabled"] = *params.AutoReplyEnabled
	}

	var user types.User
	err := s.users().FindOneAndUpdate(ctx,
		bson.M{"_id": params.UserId},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	return user, mapErr(err)
}

func (s *MongoChatStore) SearchAccounts(ctx context.Context, query string, excluding primitive.ObjectID) ([]types.User, error) {
	filter := bson.M{
		"_id": bson.M{"$ne": excluding},
		"$or": bson.A{
			bson.M{"name": bson.M{"$regex": query, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": query, "$options": "i"}},
		},
	}

	cursor, err := s.users().Find(ctx, filter, options.Find().SetLimit(20))
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []types.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *MongoChatStore) SetUserStatus(ctx context.Context, userId primitive.ObjectID, status types.UserStatus, lastSeen time.Time) error {
	set := bson.M{"status": status}
	if !lastSeen.IsZero() {
		set["lastSeen"] = lastSeen
	}

	_, err := s.users().UpdateOne(ctx, bson.M{"_id": userId}, bson.M{"$set": set})
	return err
}

// FindOrCreateDirectChat atomically upserts the single direct chat for the
// exact participant set. The filter keys on both $all and $size so [A, B]
// and [B, A] resolve to the same document, and the self-chat [A] never
// collides with [A, B].
func (s *MongoChatStore) FindOrCreateDirectChat(ctx context.Context, participants []primitive.ObjectID) (types.Chat, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"isGroupChat": false,
		"participants": bson.M{
			"$all":  participants,
			"$size": len(participants),
		},
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"isGroupChat":  false,
			"participants": participants,
			"createdAt":    now,
			"updatedAt":    now,
		},
	}

	var chat types.Chat
	err := s.chats().FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&chat)
	if err != nil {
		return chat, mapErr(err)
	}

	return chat, s.resolveChat(ctx, &chat)
}

func (s *MongoChatStore) GetChatById(ctx context.Context, chatId primitive.ObjectID) (types.Chat, error) {
	var chat types.Chat
	if err := s.chats().FindOne(ctx, bson.M{"_id": chatId}).Decode(&chat); err != nil {
		return chat, mapErr(err)
	}

	return chat, s.resolveChat(ctx, &chat)
}

func (s *MongoChatStore) ChatsForUser(ctx context.Context, userId primitive.ObjectID) ([]types.Chat, error) {
	cursor, err := s.chats().Find(ctx,
		bson.M{"participants": userId},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find chats: %w", err)
	}
	defer cursor.Close(ctx)

	var chats []types.Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, fmt.Errorf("decode chats: %w", err)
	}

	for i := range chats {
		if err := s.resolveChat(ctx, &chats[i]); err != nil {
			return nil, err
		}
	}
	return chats, nil
}

// resolveChat populates the denormalized participant and last-message fields
// used by listing responses.
func (s *MongoChatStore) resolveChat(ctx context.Context, chat *types.Chat) error {
	cursor, err := s.users().Find(ctx, bson.M{"_id": bson.M{"$in": chat.Participants}})
	if err != nil {
		return fmt.Errorf("find participants: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &chat.ParticipantUsers); err != nil {
		return fmt.Errorf("decode participants: %w", err)
	}

	if !chat.LastMessageId.IsZero() {
		msg, err := s.GetMessageById(ctx, chat.LastMessageId)
		if err == nil {
			chat.LastMessage = &msg
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *MongoChatStore) CreateGroupChat(ctx context.Context, params CreateGroupChatParams) (types.Chat, error) {
	now := time.Now().UTC()
	chat := types.Chat{
		Id:               primitive.NewObjectID(),
		IsGroupChat:      true,
		Participants:     params.Participants,
		GroupName:        params.GroupName,
		GroupDescription: params.Description,
		GroupAdmin:       params.Admin,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if _, err := s.chats().InsertOne(ctx, chat); err != nil {
		return types.Chat{}, fmt.Errorf("insert chat: %w", err)
	}
	return chat, nil
}

func (s *MongoChatStore) UpdateGroupChat(ctx context.Context, params UpdateGroupChatParams) (types.Chat, error) {
	chat, err := s.GetChatById(ctx, params.ChatId)
	if err != nil {
		return types.Chat{}, err
	}
	if !chat.IsGroupChat {
		return types.Chat{}, ErrNotGroupChat
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if params.GroupName != "" {
		set["groupName"] = params.GroupName
	}
	if params.Description != nil {
		set["groupDescription"] = *params.Description
	}
	if params.GroupAvatar != "" {
		set["groupAvatar"] = params.GroupAvatar
	}

	participants := chat.Participants
	for _, id := range params.AddMembers {
		if !containsId(participants, id) {
			participants = append(participants, id)
		}
	}
	if len(params.RemoveMembers) > 0 {
		kept := participants[:0]
		for _, id := range participants {
			// the admin cannot be removed
			if id == chat.GroupAdmin || !containsId(params.RemoveMembers, id) {
				kept = append(kept, id)
			}
		}
		participants = kept
	}
	set["participants"] = participants

	var updated types.Chat
	err = s.chats().FindOneAndUpdate(ctx,
		bson.M{"_id": params.ChatId},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	return updated, mapErr(err)
}

func (s *MongoChatStore) LeaveGroupChat(ctx context.Context, chatId, userId primitive.ObjectID) error {
	chat, err := s.GetChatById(ctx, chatId)
	if err != nil {
		return err
	}
	if !chat.IsGroupChat {
		return ErrNotGroupChat
	}

	kept := make([]primitive.ObjectID, 0, len(chat.Participants))
	for _, id := range chat.Participants {
		if id != userId {
			kept = append(kept, id)
		}
	}

	set := bson.M{
		"participants": kept,
		"updatedAt":    time.Now().UTC(),
	}
	// hand admin off to the first remaining participant
	if chat.GroupAdmin == userId && len(kept) > 0 {
		set["groupAdmin"] = kept[0]
	}

	_, err = s.chats().UpdateOne(ctx, bson.M{"_id": chatId}, bson.M{"$set": set})
	return err
}

func (s *MongoChatStore) SetChatMuted(ctx context.Context, chatId, userId primitive.ObjectID, muted bool) error {
	var update bson.M
	if muted {
		update = bson.M{"$addToSet": bson.M{"mutedBy": userId}}
	} else {
		update = bson.M{"$pull": bson.M{"mutedBy": userId}}
	}

	_, err := s.chats().UpdateOne(ctx, bson.M{"_id": chatId}, update)
	return err
}

func (s *MongoChatStore) IsParticipant(ctx context.Context, chatId, userId primitive.ObjectID) (bool, error) {
	count, err := s.chats().CountDocuments(ctx, bson.M{
		"_id":          chatId,
		"participants": userId,
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MongoChatStore) SetLastMessage(ctx context.Context, chatId, messageId primitive.ObjectID) error {
	_, err := s.chats().UpdateOne(ctx,
		bson.M{"_id": chatId},
		bson.M{"$set": bson.M{"lastMessage": messageId, "updatedAt": time.Now().UTC()}},
	)
	return err
}

func (s *MongoChatStore) CreateMessage(ctx context.Context, params CreateMessageParams) (types.Message, error) {
	now := time.Now().UTC()
	msg := types.Message{
		Id:            primitive.NewObjectID(),
		SenderId:      params.SenderId,
		ChatId:        params.ChatId,
		Content:       params.Content,
		MessageType:   params.MessageType,
		MediaUrl:      params.MediaUrl,
		FileName:      params.FileName,
		FileSize:      params.FileSize,
		ReplyToId:     params.ReplyToId,
		DeliveredTo:   []primitive.ObjectID{},
		SeenBy:        []types.SeenReceipt{},
		IsAiGenerated: params.IsAiGenerated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if msg.MessageType == "" {
		msg.MessageType = types.MessageTypeText
	}

	if _, err := s.messages().InsertOne(ctx, msg); err != nil {
		return types.Message{}, fmt.Errorf("insert message: %w", err)
	}

	if err := s.resolveMessage(ctx, &msg); err != nil {
		return types.Message{}, err
	}
	return msg, nil
}

func (s *MongoChatStore) GetMessageById(ctx context.Context, messageId primitive.ObjectID) (types.Message, error) {
	var msg types.Message
	if err := s.messages().FindOne(ctx, bson.M{"_id": messageId}).Decode(&msg); err != nil {
		return types.Message{}, mapErr(err)
	}

	if err := s.resolveMessage(ctx, &msg); err != nil {
		return types.Message{}, err
	}
	return msg, nil
}

// resolveMessage populates the sender and, one level deep, the replied-to
// message with its own sender.
func (s *MongoChatStore) resolveMessage(ctx context.Context, msg *types.Message) error {
	var sender types.User
	if err := s.users().FindOne(ctx, bson.M{"_id": msg.SenderId}).Decode(&sender); err == nil {
		msg.Sender = &sender
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("resolve sender: %w", err)
	}

	if !msg.ReplyToId.IsZero() {
		var replyTo types.Message
		if err := s.messages().FindOne(ctx, bson.M{"_id": msg.ReplyToId}).Decode(&replyTo); err == nil {
			var replySender types.User
			if err := s.users().FindOne(ctx, bson.M{"_id": replyTo.SenderId}).Decode(&replySender); err == nil {
				replyTo.Sender = &replySender
			}
			msg.ReplyTo = &replyTo
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("resolve reply: %w", err)
		}
	}
	return nil
}

// GetMessagesPage returns one page of a chat's messages, newest page first
// but each page ordered oldest to newest, excluding messages the viewer
// deleted for themselves. Messages deleted for everyone are returned with
// their placeholder content so clients can render the tombstone.
func (s *MongoChatStore) GetMessagesPage(ctx context.Context, chatId, viewerId primitive.ObjectID, page, limit int) ([]types.Message, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 50
	}

	filter := bson.M{
		"chatId":     chatId,
		"deletedFor": bson.M{"$ne": viewerId},
	}

	total, err := s.messages().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	cursor, err := s.messages().Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(page-1)*int64(limit)).
		SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []types.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, 0, fmt.Errorf("decode messages: %w", err)
	}

	// reverse into chronological order for display
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	for i := range messages {
		if err := s.resolveMessage(ctx, &messages[i]); err != nil {
			return nil, 0, err
		}
	}
	return messages, total, nil
}

func (s *MongoChatStore) AddDelivered(ctx context.Context, messageId primitive.ObjectID, userIds []primitive.ObjectID) error {
	if len(userIds) == 0 {
		return nil
	}

	_, err := s.messages().UpdateOne(ctx,
		bson.M{"_id": messageId},
		bson.M{"$addToSet": bson.M{"deliveredTo": bson.M{"$each": userIds}}},
	)
	return err
}

func (s *MongoChatStore) AddSeen(ctx context.Context, messageIds []primitive.ObjectID, userId primitive.ObjectID, seenAt time.Time) error {
	if len(messageIds) == 0 {
		return nil
	}

	_, err := s.messages().UpdateMany(ctx,
		bson.M{
			"_id":         bson.M{"$in": messageIds},
			"seenBy.user": bson.M{"$ne": userId},
		},
		bson.M{"$addToSet": bson.M{"seenBy": types.SeenReceipt{UserId: userId, SeenAt: seenAt}}},
	)
	return err
}

func (s *MongoChatStore) MarkChatSeen(ctx context.Context, chatId, userId primitive.ObjectID, seenAt time.Time) (int64, error) {
	res, err := s.messages().UpdateMany(ctx,
		bson.M{
			"chatId":      chatId,
			"sender":      bson.M{"$ne": userId},
			"seenBy.user": bson.M{"$ne": userId},
			"isDeleted":   false,
		},
		bson.M{"$addToSet": bson.M{"seenBy": types.SeenReceipt{UserId: userId, SeenAt: seenAt}}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteMessageForEveryone tombstones a message: the content is replaced
// with the fixed placeholder and the deleted flag set. Existing
// deliveredTo/seenBy sets are left intact.
func (s *MongoChatStore) DeleteMessageForEveryone(ctx context.Context, messageId primitive.ObjectID) error {
	_, err := s.messages().UpdateOne(ctx,
		bson.M{"_id": messageId},
		bson.M{"$set": bson.M{
			"isDeleted": true,
			"content":   types.DeletedPlaceholder,
			"mediaUrl":  "",
			"updatedAt": time.Now().UTC(),
		}},
	)
	return err
}

func (s *MongoChatStore) DeleteMessageForUser(ctx context.Context, messageId, userId primitive.ObjectID) error {
	_, err := s.messages().UpdateOne(ctx,
		bson.M{"_id": messageId},
		bson.M{"$addToSet": bson.M{"deletedFor": userId}},
	)
	return err
}

func containsId(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, other := range ids {
		if other == id {
			return true
		}
	}
	return false
}
