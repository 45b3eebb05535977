package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/apperr"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/models"
)

// DirectKey builds the canonical key for a two-party chat: the sorted
// participant pair. The unique index on it is what closes the
// lookup-then-create race.
func DirectKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// ListChatsByUser returns one page of the user's chats, most recently
// updated first, plus the total count.
func (r *MongoRepository) ListChatsByUser(ctx context.Context, userID string, page, perPage int) ([]models.Chat, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"participants": userID}
	total, err := r.chats.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))
	cur, err := r.chats.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	chats := []models.Chat{}
	if err := cur.All(ctx, &chats); err != nil {
		return nil, 0, err
	}
	return chats, total, nil
}

// GetChatForUser loads a chat only if userID is a participant. A missing
// chat and a non-participant lookup both come back as ErrNotFound.
func (r *MongoRepository) GetChatForUser(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var chat models.Chat
	err := r.chats.FindOne(ctx, bson.M{"_id": chatID, "participants": userID}).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

// ResolveOrCreateDirect finds the direct chat for the pair or creates it.
// The $setOnInsert upsert against the unique direct_key index makes the
// operation safe when both participants race to start the conversation.
func (r *MongoRepository) ResolveOrCreateDirect(ctx context.Context, userA, userB string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	key := DirectKey(userA, userB)
	doc := bson.M{
		"_id":          primitive.NewObjectID().Hex(),
		"participants": []string{userA, userB},
		"direct_key":   key,
		"is_group":     false,
		"archived_by":  []string{},
		"muted_by":     []string{},
		"deleted_by":   []string{},
		"created_at":   now,
		"updated_at":   now,
	}

	res := r.chats.FindOneAndUpdate(
		ctx,
		bson.M{"direct_key": key},
		bson.M{"$setOnInsert": doc},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var chat models.Chat
	if err := res.Decode(&chat); err != nil {
		// A concurrent upsert can lose the race on the unique index; the
		// winner's document is there to read.
		if mongo.IsDuplicateKeyError(err) {
			err = r.chats.FindOne(ctx, bson.M{"direct_key": key}).Decode(&chat)
			if err != nil {
				return nil, err
			}
			return &chat, nil
		}
		return nil, err
	}
	return &chat, nil
}

// AddChatFlag idempotently adds userID to the given per-user flag set.
// Fails ErrNotFound when the chat is missing or userID is not a participant.
func (r *MongoRepository) AddChatFlag(ctx context.Context, chatID, userID, flag string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.chats.UpdateOne(
		ctx,
		bson.M{"_id": chatID, "participants": userID},
		bson.M{"$addToSet": bson.M{flag: userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// RemoveChatFlag idempotently removes userID from the given flag set.
func (r *MongoRepository) RemoveChatFlag(ctx context.Context, chatID, userID, flag string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.chats.UpdateOne(
		ctx,
		bson.M{"_id": chatID, "participants": userID},
		bson.M{"$pull": bson.M{flag: userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SetLastMessage points the chat at its newest message and bumps updated_at.
func (r *MongoRepository) SetLastMessage(ctx context.Context, chatID, messageID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.chats.UpdateOne(
		ctx,
		bson.M{"_id": chatID},
		bson.M{"$set": bson.M{"last_message_id": messageID, "updated_at": time.Now().UTC()}},
	)
	return err
}

// UnreadCount counts messages in the chat that userID has neither sent
// nor seen.
func (r *MongoRepository) UnreadCount(ctx context.Context, chatID, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.messages.CountDocuments(ctx, bson.M{
		"chat_id": chatID,
		"sender":  bson.M{"$ne": userID},
		"seen_by": bson.M{"$ne": userID},
	})
}
