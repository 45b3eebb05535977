// Package routes wires the HTTP surface onto the fiber app.
package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/handlers"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/ws"
)

// Deps carries everything route registration needs.
type Deps struct {
	Auth      *handlers.AuthHandler
	Chats     *handlers.ChatHandler
	Messages  *handlers.MessageHandler
	Stories   *handlers.StoryHandler
	Hub       *ws.Hub
	Presence  ws.Presence
	AuthMW    fiber.Handler
	JWTSecret string
}

// Register attaches every route. Everything except register, login and the
// websocket upgrade sits behind the auth middleware; the websocket carries
// its token as a query parameter instead.
func Register(app *fiber.App, d Deps) {
	user := app.Group("/user")
	user.Post("/register", d.Auth.Register)
	user.Post("/login", d.Auth.Login)
	user.Post("/logout", d.AuthMW, d.Auth.Logout)

	chat := app.Group("/chat", d.AuthMW)
	chat.Get("/chats", d.Chats.ListChats)
	chat.Post("/chat", d.Chats.GetChat)
	chat.Put("/archive", d.Chats.Archive)
	chat.Put("/unarchive", d.Chats.Unarchive)
	chat.Put("/mute", d.Chats.Mute)
	chat.Put("/unmute", d.Chats.Unmute)
	chat.Delete("/delete", d.Chats.DeleteChat)

	chat.Post("/messages", d.Messages.ListMessages)
	chat.Post("/message", d.Messages.SendMessage)
	chat.Put("/message", d.Messages.EditMessage)
	chat.Delete("/message", d.Messages.DeleteMessage)
	chat.Put("/seen", d.Messages.MarkSeen)

	story := app.Group("/story", d.AuthMW)
	story.Post("/story", d.Stories.CreateStory)
	story.Get("/stories", d.Stories.ListStories)
	story.Put("/view", d.Stories.ViewStory)

	app.Get("/ws", ws.Upgrade, ws.Handler(d.Hub, d.Presence, d.JWTSecret))
}
