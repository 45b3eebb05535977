package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/apperr"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/models"
)

// ListMessagesByChat returns one page of the chat's messages, newest first,
// plus the total count. Authorization is the caller's job.
func (r *MongoRepository) ListMessagesByChat(ctx context.Context, chatID string, page, perPage int) ([]models.Message, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"chat_id": chatID}
	total, err := r.messages.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))
	cur, err := r.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	msgs := []models.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// InsertMessage persists a new message. The caller sets seen_by to the
// sender before handing it over.
func (r *MongoRepository) InsertMessage(ctx context.Context, m *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if m.ID == "" {
		m.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.messages.InsertOne(ctx, m)
	return err
}

// GetMessage loads one message by id.
func (r *MongoRepository) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var m models.Message
	if err := r.messages.FindOne(ctx, bson.M{"_id": messageID}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ApplyEdit snapshots the prior content onto edit_history and overwrites
// the content in a single update, returning the post-edit document.
func (r *MongoRepository) ApplyEdit(ctx context.Context, messageID, newContent string, entry models.EditEntry) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res := r.messages.FindOneAndUpdate(
		ctx,
		bson.M{"_id": messageID},
		bson.M{
			"$push": bson.M{"edit_history": entry},
			"$set": bson.M{
				"content":    newContent,
				"is_edited":  true,
				"edited_at":  entry.EditedAt,
				"updated_at": entry.EditedAt,
			},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var m models.Message
	if err := res.Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// AddDeletedBy idempotently marks the message deleted for userID.
func (r *MongoRepository) AddDeletedBy(ctx context.Context, messageID, userID string) error {
	return r.addToMessageSet(ctx, messageID, "deleted_by", userID)
}

// AddSeenBy idempotently records userID's seen receipt and returns the
// updated message so callers can broadcast the full seen_by set.
func (r *MongoRepository) AddSeenBy(ctx context.Context, messageID, userID string) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res := r.messages.FindOneAndUpdate(
		ctx,
		bson.M{"_id": messageID},
		bson.M{
			"$addToSet": bson.M{"seen_by": userID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var m models.Message
	if err := res.Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MongoRepository) addToMessageSet(ctx context.Context, messageID, field, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.messages.UpdateOne(
		ctx,
		bson.M{"_id": messageID},
		bson.M{
			"$addToSet": bson.M{field: userID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
