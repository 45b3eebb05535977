package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/apperr"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/models"
)

// NowFunc supplies timestamps; tests pin it.
type NowFunc func() time.Time

func defaultNow() time.Time { return time.Now().UTC() }

// WithNow overrides the service clock. Test hook.
func (s *ChatService) WithNow(now NowFunc) *ChatService {
	s.now = now
	return s
}

// LocationInput uses pointers so a missing coordinate is distinguishable
// from latitude or longitude zero.
type LocationInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// SendMessageInput carries one send request. Exactly one of ChatID and
// RecipientID routes the message: ChatID targets an existing thread,
// RecipientID resolves or creates the direct thread with that user.
type SendMessageInput struct {
	ChatID      string         `json:"chatId"`
	RecipientID string         `json:"recipientId"`
	MessageType string         `json:"messageType"`
	Content     string         `json:"content"`
	MediaURL    string         `json:"mediaUrl"`
	Location    *LocationInput `json:"location"`
}

// ValidatePayload checks the payload shape against the message type.
func (in *SendMessageInput) ValidatePayload() error {
	switch {
	case !models.ValidMessageType(in.MessageType):
		return apperr.ErrInvalidArgument
	case in.MessageType == models.TypeText && strings.TrimSpace(in.Content) == "":
		return apperr.ErrInvalidArgument
	case models.IsMediaType(in.MessageType) && in.MediaURL == "":
		return apperr.ErrInvalidArgument
	case in.MessageType == models.TypeLocation &&
		(in.Location == nil || in.Location.Latitude == nil || in.Location.Longitude == nil):
		return apperr.ErrInvalidArgument
	}
	return nil
}

func (in *SendMessageInput) location() *models.Location {
	if in.Location == nil || in.Location.Latitude == nil || in.Location.Longitude == nil {
		return nil
	}
	return &models.Location{Latitude: *in.Location.Latitude, Longitude: *in.Location.Longitude}
}

// SendMessage appends a message to its thread, resolving the thread first
// when only a recipient is given. The message insert and the lastMessage
// update are two separate writes; a failure after the insert leaves a stale
// lastMessage pointer, which is tolerated because it is only a cache.
func (s *ChatService) SendMessage(ctx context.Context, senderID string, in SendMessageInput) (*models.Message, error) {
	if err := in.ValidatePayload(); err != nil {
		return nil, err
	}
	if in.ChatID == "" && in.RecipientID == "" {
		return nil, apperr.ErrInvalidArgument
	}
	if in.RecipientID == senderID && in.ChatID == "" {
		return nil, apperr.ErrInvalidArgument
	}

	var chat *models.Chat
	var err error
	if in.ChatID != "" {
		chat, err = s.chats.GetChatForUser(ctx, in.ChatID, senderID)
	} else {
		chat, err = s.chats.ResolveOrCreateDirect(ctx, senderID, in.RecipientID)
	}
	if err != nil {
		return nil, storeErr(err)
	}

	now := s.now()
	msg := &models.Message{
		ChatID:      chat.ID,
		Sender:      senderID,
		MessageType: in.MessageType,
		Content:     in.Content,
		MediaURL:    in.MediaURL,
		Location:    in.location(),
		SeenBy:      []string{senderID},
		DeletedBy:   []string{},
		EditHistory: []models.EditEntry{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.messages.InsertMessage(ctx, msg); err != nil {
		return nil, apperr.Wrap(apperr.ErrInternal, err)
	}

	if err := s.chats.SetLastMessage(ctx, chat.ID, msg.ID); err != nil {
		// The message is committed; the pointer catches up on the next send.
		log.Error().Err(err).Str("chat", chat.ID).Msg("set last message failed")
	}

	s.publish(ctx, chat.ID, EventMessageNew, msg)
	return msg, nil
}

// ListMessages pages through a chat's messages after checking the caller
// participates in it.
func (s *ChatService) ListMessages(ctx context.Context, userID, chatID string, page, perPage int) ([]models.Message, Page, error) {
	if chatID == "" || page < 1 || perPage < 1 {
		return nil, Page{}, apperr.ErrInvalidArgument
	}
	if _, err := s.chats.GetChatForUser(ctx, chatID, userID); err != nil {
		return nil, Page{}, storeErr(err)
	}

	msgs, total, err := s.messages.ListMessagesByChat(ctx, chatID, page, perPage)
	if err != nil {
		return nil, Page{}, apperr.Wrap(apperr.ErrInternal, err)
	}
	return msgs, newPage(page, perPage, total), nil
}

// EditMessage overwrites the content after snapshotting it onto the edit
// history. Only the original sender may edit.
func (s *ChatService) EditMessage(ctx context.Context, editorID, messageID, newContent string) (*models.Message, error) {
	if messageID == "" || strings.TrimSpace(newContent) == "" {
		return nil, apperr.ErrInvalidArgument
	}

	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return nil, storeErr(err)
	}
	if msg.Sender != editorID {
		return nil, apperr.ErrForbidden
	}

	entry := models.EditEntry{OldContent: msg.Content, EditedAt: s.now()}
	updated, err := s.messages.ApplyEdit(ctx, messageID, newContent, entry)
	if err != nil {
		return nil, storeErr(err)
	}

	s.publish(ctx, updated.ChatID, EventMessageEdited, map[string]any{
		"messageId":   updated.ID,
		"newContent":  updated.Content,
		"editedAt":    updated.EditedAt,
		"editHistory": updated.EditHistory,
	})
	return updated, nil
}

// DeleteMessage soft-deletes the message for its sender. Idempotent.
func (s *ChatService) DeleteMessage(ctx context.Context, requesterID, messageID string) error {
	if messageID == "" {
		return apperr.ErrInvalidArgument
	}

	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return storeErr(err)
	}
	if msg.Sender != requesterID {
		return apperr.ErrForbidden
	}

	if err := s.messages.AddDeletedBy(ctx, messageID, requesterID); err != nil {
		return storeErr(err)
	}

	s.publish(ctx, msg.ChatID, EventMessageDeleted, map[string]any{
		"messageId": messageID,
		"deletedBy": requesterID,
	})
	return nil
}

// MarkSeen records the viewer's seen receipt. The viewer must participate
// in the owning chat. Idempotent.
func (s *ChatService) MarkSeen(ctx context.Context, viewerID, messageID string) ([]string, error) {
	if messageID == "" {
		return nil, apperr.ErrInvalidArgument
	}

	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return nil, storeErr(err)
	}
	if _, err := s.chats.GetChatForUser(ctx, msg.ChatID, viewerID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrForbidden
		}
		return nil, storeErr(err)
	}

	updated, err := s.messages.AddSeenBy(ctx, messageID, viewerID)
	if err != nil {
		return nil, storeErr(err)
	}

	s.publish(ctx, updated.ChatID, EventMessageSeen, map[string]any{
		"messageId": updated.ID,
		"seenBy":    updated.SeenBy,
	})
	return updated.SeenBy, nil
}
