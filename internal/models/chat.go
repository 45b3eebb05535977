package models

import "time"

// Chat is a conversation container. For direct chats DirectKey holds the
// sorted participant pair and carries a unique index, so two users racing
// to start the same conversation converge on one document.
type Chat struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	Participants  []string  `bson:"participants" json:"participants"`
	DirectKey     string    `bson:"direct_key,omitempty" json:"-"`
	LastMessageID string    `bson:"last_message_id,omitempty" json:"lastMessageId,omitempty"`
	IsGroup       bool      `bson:"is_group" json:"isGroup"`
	GroupName     string    `bson:"group_name,omitempty" json:"groupName,omitempty"`
	GroupImage    string    `bson:"group_image,omitempty" json:"groupImage,omitempty"`
	ArchivedBy    []string  `bson:"archived_by" json:"archivedBy"`
	MutedBy       []string  `bson:"muted_by" json:"mutedBy"`
	DeletedBy     []string  `bson:"deleted_by" json:"deletedBy"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasParticipant reports whether userID belongs to the chat.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// ChatView is a Chat decorated with the per-user fields a chat list needs.
type ChatView struct {
	Chat
	LastMessage *Message `json:"lastMessage,omitempty"`
	UnreadCount int64    `json:"unreadCount"`
	IsArchived  bool     `json:"isArchived"`
	IsMuted     bool     `json:"isMuted"`
	IsDeleted   bool     `json:"isDeleted"`
}
