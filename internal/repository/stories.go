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

// CreateStory persists a new story.
func (r *MongoRepository) CreateStory(ctx context.Context, s *models.Story) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if s.ID == "" {
		s.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.stories.InsertOne(ctx, s)
	return err
}

// ListActiveStories returns stories that have not yet expired, newest first.
func (r *MongoRepository) ListActiveStories(ctx context.Context) ([]models.Story, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"is_active": true, "expiration_date": bson.M{"$gt": time.Now().UTC()}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.stories.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	stories := []models.Story{}
	if err := cur.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

// AddStoryViewer records that viewerID watched the story. A repeat view is
// a no-op because of the viewer_id match in the filter.
func (r *MongoRepository) AddStoryViewer(ctx context.Context, storyID, viewerID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.stories.FindOne(ctx, bson.M{"_id": storyID}).Err()
	if err == mongo.ErrNoDocuments {
		return apperr.ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = r.stories.UpdateOne(
		ctx,
		bson.M{"_id": storyID, "viewers.viewer_id": bson.M{"$ne": viewerID}},
		bson.M{"$push": bson.M{"viewers": models.StoryView{
			ViewerID: viewerID,
			ViewedAt: time.Now().UTC(),
		}}},
	)
	return err
}
