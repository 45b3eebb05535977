package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/config"
)

const opTimeout = 5 * time.Second

// MongoRepository bundles the collection handles the chat core persists to.
type MongoRepository struct {
	client    *mongo.Client
	db        *mongo.Database
	users     *mongo.Collection
	chats     *mongo.Collection
	messages  *mongo.Collection
	stories   *mongo.Collection
	blacklist *mongo.Collection
}

// NewMongoRepository connects to MongoDB and ensures the indexes the chat
// core relies on, most importantly the unique direct_key index that makes
// concurrent direct-chat creation converge on one document.
func NewMongoRepository(cfg *config.Config) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(cfg.Mongo.DB)
	r := &MongoRepository{
		client:    client,
		db:        db,
		users:     db.Collection("users"),
		chats:     db.Collection("chats"),
		messages:  db.Collection("messages"),
		stories:   db.Collection("stories"),
		blacklist: db.Collection("blacklist"),
	}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.chats.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "direct_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updated_at", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = r.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return err
	}

	_, err = r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys:    bson.D{{Key: "phone_number.code", Value: 1}, {Key: "phone_number.number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	// Blacklisted tokens expire after seven days, stories at their
	// expiration date.
	_, err = r.blacklist.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(7 * 24 * 3600),
	})
	if err != nil {
		return err
	}

	_, err = r.stories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiration_date", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

// Disconnect closes the MongoDB connection.
func (r *MongoRepository) Disconnect(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
