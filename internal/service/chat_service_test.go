package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/apperr"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/models"
)

// memStore is an in-memory ChatStore+MessageStore. ResolveOrCreateDirect
// enforces the same uniqueness the store-level index gives the real
// repository.
type memStore struct {
	mu       sync.Mutex
	chats    map[string]*models.Chat
	byKey    map[string]*models.Chat
	messages map[string]*models.Message
	seq      int
}

func newMemStore() *memStore {
	return &memStore{
		chats:    make(map[string]*models.Chat),
		byKey:    make(map[string]*models.Chat),
		messages: make(map[string]*models.Message),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return prefix + strconv.Itoa(s.seq)
}

func directKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

func (s *memStore) ListChatsByUser(_ context.Context, userID string, page, perPage int) ([]models.Chat, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Chat
	for _, c := range s.chats {
		if c.HasParticipant(userID) {
			all = append(all, *c)
		}
	}
	total := int64(len(all))
	start := (page - 1) * perPage
	if start >= len(all) {
		return []models.Chat{}, total, nil
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *memStore) GetChatForUser(_ context.Context, chatID, userID string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok || !c.HasParticipant(userID) {
		return nil, apperr.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) ResolveOrCreateDirect(_ context.Context, a, b string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := directKey(a, b)
	if c, ok := s.byKey[key]; ok {
		cp := *c
		return &cp, nil
	}
	c := &models.Chat{
		ID:           s.nextID("chat"),
		Participants: []string{a, b},
		DirectKey:    key,
		ArchivedBy:   []string{},
		MutedBy:      []string{},
		DeletedBy:    []string{},
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.chats[c.ID] = c
	s.byKey[key] = c
	cp := *c
	return &cp, nil
}

func (s *memStore) AddChatFlag(_ context.Context, chatID, userID, flag string) error {
	return s.toggleFlag(chatID, userID, flag, true)
}

func (s *memStore) RemoveChatFlag(_ context.Context, chatID, userID, flag string) error {
	return s.toggleFlag(chatID, userID, flag, false)
}

func (s *memStore) toggleFlag(chatID, userID, flag string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok || !c.HasParticipant(userID) {
		return apperr.ErrNotFound
	}
	var set *[]string
	switch flag {
	case FlagArchived:
		set = &c.ArchivedBy
	case FlagMuted:
		set = &c.MutedBy
	case FlagDeleted:
		set = &c.DeletedBy
	default:
		return fmt.Errorf("unknown flag %q", flag)
	}
	if on {
		*set = addToSet(*set, userID)
	} else {
		*set = removeFromSet(*set, userID)
	}
	return nil
}

func (s *memStore) SetLastMessage(_ context.Context, chatID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chats[chatID]; ok {
		c.LastMessageID = messageID
		c.UpdatedAt = time.Now()
	}
	return nil
}

func (s *memStore) UnreadCount(_ context.Context, chatID, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.ChatID == chatID && m.Sender != userID && !containsStr(m.SeenBy, userID) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListMessagesByChat(_ context.Context, chatID string, page, perPage int) ([]models.Message, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Message
	for _, m := range s.messages {
		if m.ChatID == chatID {
			all = append(all, *m)
		}
	}
	return all, int64(len(all)), nil
}

func (s *memStore) InsertMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = s.nextID("msg")
	}
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s *memStore) GetMessage(_ context.Context, messageID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) ApplyEdit(_ context.Context, messageID, newContent string, entry models.EditEntry) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	m.EditHistory = append(m.EditHistory, entry)
	m.Content = newContent
	m.IsEdited = true
	t := entry.EditedAt
	m.EditedAt = &t
	cp := *m
	return &cp, nil
}

func (s *memStore) AddDeletedBy(_ context.Context, messageID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return apperr.ErrNotFound
	}
	m.DeletedBy = addToSet(m.DeletedBy, userID)
	return nil
}

func (s *memStore) AddSeenBy(_ context.Context, messageID, userID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	m.SeenBy = addToSet(m.SeenBy, userID)
	cp := *m
	return &cp, nil
}

func addToSet(set []string, v string) []string {
	if containsStr(set, v) {
		return set
	}
	return append(set, v)
}

func removeFromSet(set []string, v string) []string {
	out := set[:0]
	for _, s := range set {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func containsStr(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

type pubEvent struct {
	chatID string
	event  string
}

// fakePub records published events.
type fakePub struct {
	mu     sync.Mutex
	events []pubEvent
}

func (p *fakePub) Publish(_ context.Context, chatID, event string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pubEvent{chatID: chatID, event: event})
}

func (p *fakePub) all() []pubEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pubEvent(nil), p.events...)
}

func newTestService() (*ChatService, *memStore, *fakePub) {
	store := newMemStore()
	pub := &fakePub{}
	svc := NewChatService(store, store, pub)
	return svc, store, pub
}

func textMessage(content string) SendMessageInput {
	return SendMessageInput{MessageType: models.TypeText, Content: content}
}

func TestSendMessageCreatesDirectChat(t *testing.T) {
	svc, store, pub := newTestService()
	ctx := context.Background()

	in := textMessage("hi")
	in.RecipientID = "bob"
	msg, err := svc.SendMessage(ctx, "alice", in)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ChatID == "" {
		t.Fatal("expected a chat id on the message")
	}
	if len(msg.SeenBy) != 1 || msg.SeenBy[0] != "alice" {
		t.Errorf("expected seenBy=[alice], got %v", msg.SeenBy)
	}

	// second send from the other side reuses the same thread
	in2 := textMessage("hey")
	in2.ChatID = msg.ChatID
	msg2, err := svc.SendMessage(ctx, "bob", in2)
	if err != nil {
		t.Fatalf("second send: %v", err)
	}
	if msg2.ChatID != msg.ChatID {
		t.Errorf("expected chat %s reused, got %s", msg.ChatID, msg2.ChatID)
	}
	if len(store.chats) != 1 {
		t.Errorf("expected 1 chat, got %d", len(store.chats))
	}

	events := pub.all()
	if len(events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.event != EventMessageNew || ev.chatID != msg.ChatID {
			t.Errorf("unexpected event %+v", ev)
		}
	}

	// lastMessage pointer caught up
	if store.chats[msg.ChatID].LastMessageID != msg2.ID {
		t.Errorf("lastMessage = %s, want %s", store.chats[msg.ChatID].LastMessageID, msg2.ID)
	}
}

func TestResolveOrCreateDirectIsConvergentUnderRace(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		sender, recipient := "alice", "bob"
		if i%2 == 1 {
			sender, recipient = "bob", "alice"
		}
		wg.Add(1)
		go func(sender, recipient string) {
			defer wg.Done()
			in := textMessage("hello")
			in.RecipientID = recipient
			if _, err := svc.SendMessage(ctx, sender, in); err != nil {
				t.Errorf("send: %v", err)
			}
		}(sender, recipient)
	}
	wg.Wait()

	if len(store.chats) != 1 {
		t.Fatalf("expected exactly 1 chat after concurrent sends, got %d", len(store.chats))
	}
	for _, c := range store.chats {
		if len(c.Participants) != 2 {
			t.Errorf("expected 2 participants, got %v", c.Participants)
		}
	}
}

func TestSendMessagePayloadValidation(t *testing.T) {
	svc, _, pub := newTestService()
	ctx := context.Background()

	lat := 1.5
	cases := []struct {
		name string
		in   SendMessageInput
	}{
		{"unknown type", SendMessageInput{RecipientID: "bob", MessageType: "poke"}},
		{"empty text", SendMessageInput{RecipientID: "bob", MessageType: models.TypeText, Content: "   "}},
		{"image without mediaUrl", SendMessageInput{RecipientID: "bob", MessageType: models.TypeImage}},
		{"location missing longitude", SendMessageInput{
			RecipientID: "bob", MessageType: models.TypeLocation,
			Location: &LocationInput{Latitude: &lat},
		}},
		{"no route", textMessage("hi")},
		{"self direct", func() SendMessageInput {
			in := textMessage("hi")
			in.RecipientID = "alice"
			return in
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SendMessage(ctx, "alice", tc.in); !errors.Is(err, apperr.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
	if len(pub.all()) != 0 {
		t.Error("no events should be published for rejected sends")
	}
}

func TestSendMessageRequiresParticipation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	in := textMessage("hi")
	in.RecipientID = "bob"
	msg, err := svc.SendMessage(ctx, "alice", in)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	intruder := textMessage("let me in")
	intruder.ChatID = msg.ChatID
	if _, err := svc.SendMessage(ctx, "carol", intruder); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-participant, got %v", err)
	}
}

func TestEditMessageKeepsHistory(t *testing.T) {
	svc, _, pub := newTestService()
	ctx := context.Background()

	in := textMessage("hi")
	in.RecipientID = "bob"
	msg, err := svc.SendMessage(ctx, "alice", in)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	edited, err := svc.EditMessage(ctx, "alice", msg.ID, "hello")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Content != "hello" || !edited.IsEdited {
		t.Errorf("content=%q isEdited=%v", edited.Content, edited.IsEdited)
	}
	if len(edited.EditHistory) != 1 || edited.EditHistory[0].OldContent != "hi" {
		t.Errorf("unexpected history %+v", edited.EditHistory)
	}

	// history grows by one per edit
	for i, next := range []string{"hello there", "hello again"} {
		edited, err = svc.EditMessage(ctx, "alice", msg.ID, next)
		if err != nil {
			t.Fatalf("edit %d: %v", i, err)
		}
	}
	if len(edited.EditHistory) != 3 {
		t.Errorf("expected 3 history entries after 3 edits, got %d", len(edited.EditHistory))
	}
	if edited.EditHistory[1].OldContent != "hello" || edited.EditHistory[2].OldContent != "hello there" {
		t.Errorf("history out of order: %+v", edited.EditHistory)
	}

	events := pub.all()
	last := events[len(events)-1]
	if last.event != EventMessageEdited {
		t.Errorf("expected %s event, got %s", EventMessageEdited, last.event)
	}
}

func TestEditMessageOnlySender(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	in := textMessage("hi")
	in.RecipientID = "bob"
	msg, _ := svc.SendMessage(ctx, "alice", in)

	if _, err := svc.EditMessage(ctx, "bob", msg.ID, "hacked"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.EditMessage(ctx, "alice", "missing", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMessageIdempotentAndSenderOnly(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	in := textMessage("hi")
	in.RecipientID = "bob"
	msg, _ := svc.SendMessage(ctx, "alice", in)

	if err := svc.DeleteMessage(ctx, "bob", msg.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	if err := svc.DeleteMessage(ctx, "alice", msg.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteMessage(ctx, "alice", msg.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if got := store.messages[msg.ID].DeletedBy; len(got) != 1 || got[0] != "alice" {
		t.Errorf("expected deletedBy=[alice], got %v", got)
	}
}

func TestMarkSeen(t *testing.T) {
	svc, store, pub := newTestService()
	ctx := context.Background()

	in := textMessage("hi")
	in.RecipientID = "bob"
	msg, _ := svc.SendMessage(ctx, "alice", in)

	seenBy, err := svc.MarkSeen(ctx, "bob", msg.ID)
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if len(seenBy) != 2 {
		t.Errorf("expected seenBy of 2, got %v", seenBy)
	}

	// idempotent
	if _, err := svc.MarkSeen(ctx, "bob", msg.ID); err != nil {
		t.Fatalf("second seen: %v", err)
	}
	if got := store.messages[msg.ID].SeenBy; len(got) != 2 {
		t.Errorf("expected seenBy unchanged, got %v", got)
	}

	// non-participants cannot leave receipts
	if _, err := svc.MarkSeen(ctx, "carol", msg.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	events := pub.all()
	if events[len(events)-1].event != EventMessageSeen {
		t.Errorf("expected %s as last event", EventMessageSeen)
	}
}

func TestListChatsValidatesPagination(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	for _, p := range [][2]int{{0, 10}, {1, 0}, {-1, -1}} {
		if _, _, err := svc.ListChats(ctx, "alice", p[0], p[1]); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Errorf("page=%v: expected ErrInvalidArgument, got %v", p, err)
		}
	}
}

func TestListChatsComputesPerUserFields(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	in := textMessage("hi")
	in.RecipientID = "bob"
	msg, _ := svc.SendMessage(ctx, "alice", in)

	if err := svc.SetChatFlag(ctx, "bob", msg.ChatID, FlagArchived, true); err != nil {
		t.Fatalf("archive: %v", err)
	}

	views, page, err := svc.ListChats(ctx, "bob", 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || len(views) != 1 {
		t.Fatalf("expected 1 chat, got %d (total %d)", len(views), page.Total)
	}
	v := views[0]
	if !v.IsArchived || v.IsMuted || v.IsDeleted {
		t.Errorf("flags wrong: %+v", v)
	}
	if v.UnreadCount != 1 {
		t.Errorf("expected 1 unread for bob, got %d", v.UnreadCount)
	}
	if v.LastMessage == nil || v.LastMessage.ID != msg.ID {
		t.Error("expected lastMessage populated")
	}

	// alice sees her own message as read
	views, _, _ = svc.ListChats(ctx, "alice", 1, 10)
	if views[0].UnreadCount != 0 {
		t.Errorf("expected 0 unread for alice, got %d", views[0].UnreadCount)
	}
	if views[0].IsArchived {
		t.Error("archive flag must be per-user")
	}
}

func TestSetChatFlagIdempotent(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	in := textMessage("hi")
	in.RecipientID = "bob"
	msg, _ := svc.SendMessage(ctx, "alice", in)

	for i := 0; i < 2; i++ {
		if err := svc.SetChatFlag(ctx, "alice", msg.ChatID, FlagMuted, true); err != nil {
			t.Fatalf("mute %d: %v", i, err)
		}
	}
	if got := store.chats[msg.ChatID].MutedBy; len(got) != 1 {
		t.Errorf("expected mutedBy=[alice], got %v", got)
	}

	if err := svc.SetChatFlag(ctx, "alice", msg.ChatID, FlagMuted, false); err != nil {
		t.Fatalf("unmute: %v", err)
	}
	if err := svc.SetChatFlag(ctx, "alice", msg.ChatID, FlagMuted, false); err != nil {
		t.Fatalf("second unmute: %v", err)
	}
	if got := store.chats[msg.ChatID].MutedBy; len(got) != 0 {
		t.Errorf("expected empty mutedBy, got %v", got)
	}

	if err := svc.SetChatFlag(ctx, "carol", msg.ChatID, FlagMuted, true); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-participant, got %v", err)
	}
	if err := svc.SetChatFlag(ctx, "alice", msg.ChatID, "starred_by", true); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown flag, got %v", err)
	}
}

func TestGetChatHidesForeignChats(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	in := textMessage("hi")
	in.RecipientID = "bob"
	msg, _ := svc.SendMessage(ctx, "alice", in)

	if _, err := svc.GetChat(ctx, "carol", msg.ChatID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for outsider, got %v", err)
	}
	if _, err := svc.GetChat(ctx, "carol", "no-such-chat"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing chat, got %v", err)
	}

	view, err := svc.GetChat(ctx, "alice", msg.ChatID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.ID != msg.ChatID {
		t.Errorf("got chat %s, want %s", view.ID, msg.ChatID)
	}
}

func TestListMessagesRequiresParticipation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	in := textMessage("hi")
	in.RecipientID = "bob"
	msg, _ := svc.SendMessage(ctx, "alice", in)

	if _, _, err := svc.ListMessages(ctx, "carol", msg.ChatID, 1, 10); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	msgs, page, err := svc.ListMessages(ctx, "bob", msg.ChatID, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 || page.Total != 1 {
		t.Errorf("expected 1 message, got %d (total %d)", len(msgs), page.Total)
	}
}
