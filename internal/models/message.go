package models

import "time"

// Message types supported by the ledger. Everything except text and
// location carries its payload in MediaURL.
const (
	TypeText      = "text"
	TypeImage     = "image"
	TypeVideo     = "video"
	TypeAudio     = "audio"
	TypeDocument  = "document"
	TypeSticker   = "sticker"
	TypeVoiceNote = "voiceNote"
	TypeLocation  = "location"
)

// MessageTypes lists every valid value of Message.MessageType.
var MessageTypes = []string{
	TypeText, TypeImage, TypeVideo, TypeAudio,
	TypeDocument, TypeSticker, TypeVoiceNote, TypeLocation,
}

// MediaTypes are the message types that require a media URL.
var MediaTypes = []string{
	TypeImage, TypeVideo, TypeAudio, TypeDocument, TypeSticker, TypeVoiceNote,
}

type Location struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// EditEntry snapshots the content of a message as it was before one edit.
type EditEntry struct {
	OldContent string    `bson:"old_content" json:"oldContent"`
	EditedAt   time.Time `bson:"edited_at" json:"editedAt"`
}

type Message struct {
	ID          string      `bson:"_id,omitempty" json:"id"`
	ChatID      string      `bson:"chat_id" json:"chatId"`
	Sender      string      `bson:"sender" json:"sender"`
	MessageType string      `bson:"message_type" json:"messageType"`
	Content     string      `bson:"content,omitempty" json:"content,omitempty"`
	MediaURL    string      `bson:"media_url,omitempty" json:"mediaUrl,omitempty"`
	Location    *Location   `bson:"location,omitempty" json:"location,omitempty"`
	SeenBy      []string    `bson:"seen_by" json:"seenBy"`
	DeletedBy   []string    `bson:"deleted_by" json:"deletedBy"`
	IsEdited    bool        `bson:"is_edited" json:"isEdited"`
	EditedAt    *time.Time  `bson:"edited_at,omitempty" json:"editedAt,omitempty"`
	EditHistory []EditEntry `bson:"edit_history" json:"editHistory"`
	CreatedAt   time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `bson:"updated_at" json:"updatedAt"`
}

// IsMediaType reports whether t is a message type carried by MediaURL.
func IsMediaType(t string) bool {
	for _, m := range MediaTypes {
		if m == t {
			return true
		}
	}
	return false
}

// ValidMessageType reports whether t is a known message type.
func ValidMessageType(t string) bool {
	for _, m := range MessageTypes {
		if m == t {
			return true
		}
	}
	return false
}
