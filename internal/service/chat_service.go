// Package service implements the chat core: thread resolution, message
// lifecycle and the fan-out of state changes to the realtime layer.
package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/apperr"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/models"
)

// Realtime event names, scoped to subscribers of the originating chat.
const (
	EventMessageNew     = "message:new"
	EventMessageEdited  = "message:edited"
	EventMessageDeleted = "message:deleted"
	EventMessageSeen    = "message:seen"
)

// Per-user chat flag fields.
const (
	FlagArchived = "archived_by"
	FlagMuted    = "muted_by"
	FlagDeleted  = "deleted_by"
)

// ChatStore is the chat directory: thread resolution and per-user flags.
type ChatStore interface {
	ListChatsByUser(ctx context.Context, userID string, page, perPage int) ([]models.Chat, int64, error)
	GetChatForUser(ctx context.Context, chatID, userID string) (*models.Chat, error)
	ResolveOrCreateDirect(ctx context.Context, userA, userB string) (*models.Chat, error)
	AddChatFlag(ctx context.Context, chatID, userID, flag string) error
	RemoveChatFlag(ctx context.Context, chatID, userID, flag string) error
	SetLastMessage(ctx context.Context, chatID, messageID string) error
	UnreadCount(ctx context.Context, chatID, userID string) (int64, error)
}

// MessageStore is the message ledger: append-only content history plus
// per-user seen and delete sets.
type MessageStore interface {
	ListMessagesByChat(ctx context.Context, chatID string, page, perPage int) ([]models.Message, int64, error)
	InsertMessage(ctx context.Context, m *models.Message) error
	GetMessage(ctx context.Context, messageID string) (*models.Message, error)
	ApplyEdit(ctx context.Context, messageID, newContent string, entry models.EditEntry) (*models.Message, error)
	AddDeletedBy(ctx context.Context, messageID, userID string) error
	AddSeenBy(ctx context.Context, messageID, userID string) (*models.Message, error)
}

// Publisher pushes an event toward subscribers of a chat. Delivery is
// best-effort; implementations never block the caller on delivery and
// never return an error to it.
type Publisher interface {
	Publish(ctx context.Context, chatID, event string, payload any)
}

// ChatService composes the directory, the ledger and the broadcaster.
type ChatService struct {
	chats    ChatStore
	messages MessageStore
	pub      Publisher
	now      NowFunc
}

func NewChatService(chats ChatStore, messages MessageStore, pub Publisher) *ChatService {
	return &ChatService{chats: chats, messages: messages, pub: pub, now: defaultNow}
}

// Page describes one page of a listing.
type Page struct {
	Index      int   `json:"currentPage"`
	PerPage    int   `json:"perPage"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func newPage(index, perPage int, total int64) Page {
	pages := total / int64(perPage)
	if total%int64(perPage) != 0 {
		pages++
	}
	return Page{Index: index, PerPage: perPage, Total: total, TotalPages: pages}
}

// ListChats returns the user's chats ordered by last activity, each
// decorated with the caller's unread count and flag membership.
func (s *ChatService) ListChats(ctx context.Context, userID string, page, perPage int) ([]models.ChatView, Page, error) {
	if page < 1 || perPage < 1 {
		return nil, Page{}, apperr.ErrInvalidArgument
	}

	chats, total, err := s.chats.ListChatsByUser(ctx, userID, page, perPage)
	if err != nil {
		return nil, Page{}, apperr.Wrap(apperr.ErrInternal, err)
	}

	views := make([]models.ChatView, 0, len(chats))
	for _, chat := range chats {
		view, err := s.decorate(ctx, chat, userID)
		if err != nil {
			return nil, Page{}, err
		}
		views = append(views, view)
	}
	return views, newPage(page, perPage, total), nil
}

// GetChat returns a single chat if the caller participates in it. A missing
// chat and a foreign chat are indistinguishable to the caller.
func (s *ChatService) GetChat(ctx context.Context, userID, chatID string) (*models.ChatView, error) {
	if chatID == "" {
		return nil, apperr.ErrInvalidArgument
	}
	chat, err := s.chats.GetChatForUser(ctx, chatID, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	view, err := s.decorate(ctx, *chat, userID)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *ChatService) decorate(ctx context.Context, chat models.Chat, userID string) (models.ChatView, error) {
	unread, err := s.chats.UnreadCount(ctx, chat.ID, userID)
	if err != nil {
		return models.ChatView{}, apperr.Wrap(apperr.ErrInternal, err)
	}
	view := models.ChatView{
		Chat:        chat,
		UnreadCount: unread,
		IsArchived:  contains(chat.ArchivedBy, userID),
		IsMuted:     contains(chat.MutedBy, userID),
		IsDeleted:   contains(chat.DeletedBy, userID),
	}
	if chat.LastMessageID != "" {
		// lastMessage is a cache; a dangling id is not an error.
		if m, err := s.messages.GetMessage(ctx, chat.LastMessageID); err == nil {
			view.LastMessage = m
		}
	}
	return view, nil
}

// SetChatFlag adds or removes the caller from one of the chat's per-user
// flag sets. Both directions are idempotent.
func (s *ChatService) SetChatFlag(ctx context.Context, userID, chatID, flag string, on bool) error {
	if chatID == "" {
		return apperr.ErrInvalidArgument
	}
	switch flag {
	case FlagArchived, FlagMuted, FlagDeleted:
	default:
		return apperr.ErrInvalidArgument
	}

	var err error
	if on {
		err = s.chats.AddChatFlag(ctx, chatID, userID, flag)
	} else {
		err = s.chats.RemoveChatFlag(ctx, chatID, userID, flag)
	}
	return storeErr(err)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// storeErr passes taxonomy errors through and wraps everything else as
// internal.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case isTaxonomy(err):
		return err
	default:
		return apperr.Wrap(apperr.ErrInternal, err)
	}
}

func isTaxonomy(err error) bool {
	for _, sentinel := range []error{
		apperr.ErrInvalidArgument, apperr.ErrNotFound,
		apperr.ErrForbidden, apperr.ErrConflict,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// publish pushes an event without letting broadcast failures surface to the
// transaction of record.
func (s *ChatService) publish(ctx context.Context, chatID, event string, payload any) {
	if s.pub == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("event", event).Msg("publish panicked")
		}
	}()
	s.pub.Publish(ctx, chatID, event, payload)
}
