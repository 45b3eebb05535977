package ws

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	readLimit    = 32 * 1024
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

// Session is one live websocket connection. It subscribes and unsubscribes
// itself from chats with control frames and receives broadcast frames on a
// buffered channel drained by the write pump.
type Session struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

func newSession(conn *websocket.Conn, userID string, hub *Hub) *Session {
	return &Session{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 256),
		hub:    hub,
	}
}

// controlFrame is what clients send upstream: join or leave a chat's
// subscriber set.
type controlFrame struct {
	Action string `json:"action"`
	ChatID string `json:"chatId"`
}

func (s *Session) readPump() {
	defer func() {
		s.hub.unregister(s)
		_ = s.conn.Close()
	}()
	s.conn.SetReadLimit(readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var ctrl controlFrame
		if err := json.Unmarshal(data, &ctrl); err != nil || ctrl.ChatID == "" {
			// ignore malformed client frames, keep the connection
			continue
		}
		switch ctrl.Action {
		case "subscribe":
			s.hub.Subscribe(ctrl.ChatID, s)
		case "unsubscribe":
			s.hub.Unsubscribe(ctrl.ChatID, s)
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-s.send:
			if !ok {
				_ = s.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}

func (s *Session) closeConn() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
