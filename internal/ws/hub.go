// Package ws is the realtime broadcaster: it keeps the registry of live
// sessions per chat and fans lifecycle events out to them. Delivery is
// best-effort; a slow session drops frames rather than block the hub.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Frame is what subscribers receive on the wire.
type Frame struct {
	Event   string          `json:"event"`
	ChatID  string          `json:"chatId"`
	Payload json.RawMessage `json:"data"`
}

type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session            // session id -> session
	rooms    map[string]map[string]*Session // chat id -> session id -> session
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.id] = s
}

// unregister removes the session from the registry and from every chat's
// subscriber set.
func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s.id]; !ok {
		return
	}
	delete(h.sessions, s.id)
	for chatID, members := range h.rooms {
		delete(members, s.id)
		if len(members) == 0 {
			delete(h.rooms, chatID)
		}
	}
	close(s.send)
}

// Subscribe adds the session to the chat's subscriber set.
func (h *Hub) Subscribe(chatID string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s.id]; !ok {
		return
	}
	if _, ok := h.rooms[chatID]; !ok {
		h.rooms[chatID] = make(map[string]*Session)
	}
	h.rooms[chatID][s.id] = s
}

// Unsubscribe removes the session from the chat's subscriber set.
func (h *Hub) Unsubscribe(chatID string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[chatID]; ok {
		delete(members, s.id)
		if len(members) == 0 {
			delete(h.rooms, chatID)
		}
	}
}

// Broadcast delivers the event to every current subscriber of the chat.
// Fire-and-forget: no acknowledgement, no replay for sessions that joined
// late or fell behind.
func (h *Hub) Broadcast(chatID, event string, payload json.RawMessage) {
	frame, err := json.Marshal(Frame{Event: event, ChatID: chatID, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal frame")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.rooms[chatID] {
		select {
		case s.send <- frame:
		default:
			// Session is not draining its queue; it re-syncs via the
			// message list on reconnect.
			log.Warn().Str("session", s.id).Str("chat", chatID).Msg("drop frame, send buffer full")
		}
	}
}

// SubscriberCount reports how many sessions are subscribed to the chat.
func (h *Hub) SubscriberCount(chatID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[chatID])
}

// Close disconnects every session.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.closeConn()
		h.unregister(s)
	}
}
