package ws

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog/log"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/auth"
)

// Presence tracks which users currently hold at least one connection.
type Presence interface {
	MarkUserOnline(ctx context.Context, userID string) error
	MarkUserOffline(ctx context.Context, userID string) error
}

// Upgrade gates the websocket route: only genuine upgrade requests pass.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler authenticates the connection from its token query parameter and
// runs the session pumps until the transport drops.
func Handler(hub *Hub, presence Presence, jwtSecret string) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		tokenStr := conn.Query("token")
		if tokenStr == "" {
			_ = conn.Close()
			return
		}
		claims, err := auth.Verify(jwtSecret, tokenStr)
		if err != nil {
			_ = conn.Close()
			return
		}

		s := newSession(conn, claims.UserID, hub)
		hub.register(s)
		if presence != nil {
			_ = presence.MarkUserOnline(context.Background(), s.userID)
		}
		log.Info().Str("user", s.userID).Str("session", s.id).Msg("ws connected")

		go s.writePump()
		s.readPump()

		if presence != nil {
			_ = presence.MarkUserOffline(context.Background(), s.userID)
		}
		log.Info().Str("user", s.userID).Str("session", s.id).Msg("ws disconnected")
	})
}
