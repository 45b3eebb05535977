package models

import "time"

const (
	StoryImage = "image"
	StoryVideo = "video"
)

type StoryView struct {
	ViewerID string    `bson:"viewer_id" json:"viewerId"`
	ViewedAt time.Time `bson:"viewed_at" json:"viewedAt"`
}

// Story is a piece of content that expires 24 hours after posting.
type Story struct {
	ID             string      `bson:"_id,omitempty" json:"id"`
	Creator        string      `bson:"creator" json:"creator"`
	Content        string      `bson:"content" json:"content"`
	Type           string      `bson:"type" json:"type"`
	ExpirationDate time.Time   `bson:"expiration_date" json:"expirationDate"`
	Viewers        []StoryView `bson:"viewers" json:"viewers"`
	IsActive       bool        `bson:"is_active" json:"isActive"`
	CreatedAt      time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time   `bson:"updated_at" json:"updatedAt"`
}
