package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BlacklistToken records a logged-out token. The TTL index on created_at
// expires entries after seven days, past any token's own lifetime.
func (r *MongoRepository) BlacklistToken(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.blacklist.UpdateOne(
		ctx,
		bson.M{"token": token},
		bson.M{"$setOnInsert": bson.M{"token": token, "created_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

// IsTokenBlacklisted reports whether the token has been logged out.
func (r *MongoRepository) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.blacklist.FindOne(ctx, bson.M{"token": token}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
