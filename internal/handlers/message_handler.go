package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/middleware"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/models"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/service"
)

// MessageHandler serves the message ledger surface.
type MessageHandler struct {
	svc     *service.ChatService
	limiter SendLimiter
}

// SendLimiter is the slice of the Redis cache the send path needs.
type SendLimiter func(c *fiber.Ctx, userID string) bool

func NewMessageHandler(svc *service.ChatService, limiter SendLimiter) *MessageHandler {
	return &MessageHandler{svc: svc, limiter: limiter}
}

type messagesBody struct {
	ChatID  string `json:"chatId"`
	Index   int    `json:"index"`
	PerPage int    `json:"perPage"`
}

type messageListBody struct {
	Messages []models.Message `json:"messages"`
	service.Page
}

// ListMessages pages through a chat's history, newest first.
func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	var body messagesBody
	if err := c.BodyParser(&body); err != nil || body.ChatID == "" {
		return badRequest(c, "Bad Request, chatId can't be empty or null")
	}
	if body.Index < 1 || body.PerPage < 1 {
		return badRequest(c, "Bad Request, index and perPage must be positive integers")
	}

	msgs, page, err := h.svc.ListMessages(c.Context(), middleware.UserID(c), body.ChatID, body.Index, body.PerPage)
	if err != nil {
		return fail(c, err, "Chat not found or unauthorized")
	}
	return respondOK(c, messageListBody{Messages: msgs, Page: page})
}

// SendMessage appends a message to a thread, creating the direct thread
// when only a recipient is given.
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	var in service.SendMessageInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Bad Request, invalid body")
	}

	userID := middleware.UserID(c)
	if h.limiter != nil && !h.limiter(c, userID) {
		return c.Status(fiber.StatusTooManyRequests).JSON(Envelope{
			Header: Header{ErrorCode: "429", Message: "Too many messages, slow down"},
		})
	}

	msg, err := h.svc.SendMessage(c.Context(), userID, in)
	if err != nil {
		return fail(c, err, "Bad Request, invalid message payload")
	}
	return respondCreated(c, msg)
}

type editBody struct {
	MessageID  string `json:"messageId"`
	NewContent string `json:"newContent"`
}

// EditMessage rewrites a message's content, keeping the prior content on
// its edit history.
func (h *MessageHandler) EditMessage(c *fiber.Ctx) error {
	var body editBody
	if err := c.BodyParser(&body); err != nil || body.MessageID == "" {
		return badRequest(c, "Bad Request, messageId is required")
	}
	if body.NewContent == "" {
		return badRequest(c, "Bad Request, New content is required")
	}

	msg, err := h.svc.EditMessage(c.Context(), middleware.UserID(c), body.MessageID, body.NewContent)
	if err != nil {
		return fail(c, err, "Unauthorized to edit this message")
	}
	return respondOK(c, msg)
}

type messageIDBody struct {
	MessageID string `json:"messageId"`
}

// DeleteMessage soft-deletes a message for its sender.
func (h *MessageHandler) DeleteMessage(c *fiber.Ctx) error {
	var body messageIDBody
	if err := c.BodyParser(&body); err != nil || body.MessageID == "" {
		return badRequest(c, "Bad Request, messageId is required")
	}

	if err := h.svc.DeleteMessage(c.Context(), middleware.UserID(c), body.MessageID); err != nil {
		return fail(c, err, "Unauthorized to delete this message")
	}
	return respondOK(c, nil)
}

// MarkSeen records the caller's seen receipt.
func (h *MessageHandler) MarkSeen(c *fiber.Ctx) error {
	var body messageIDBody
	if err := c.BodyParser(&body); err != nil || body.MessageID == "" {
		return badRequest(c, "Bad Request, messageId is required")
	}

	seenBy, err := h.svc.MarkSeen(c.Context(), middleware.UserID(c), body.MessageID)
	if err != nil {
		return fail(c, err, "Unauthorized to mark message as seen")
	}
	return respondOK(c, fiber.Map{"seenBy": seenBy})
}
