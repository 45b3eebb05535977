package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/middleware"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/models"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/service"
)

// ChatHandler serves the chat directory surface.
type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type chatListBody struct {
	Chats []models.ChatView `json:"chats"`
	service.Page
}

// ListChats returns the caller's chats. Pagination comes from the query
// string: GET endpoints take query parameters, POST endpoints take body
// fields, consistently.
func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	index, perPage, ok := pagination(c.Query("index"), c.Query("perPage"))
	if !ok {
		return badRequest(c, "Bad Request, index and perPage must be positive integers")
	}

	views, page, err := h.svc.ListChats(c.Context(), middleware.UserID(c), index, perPage)
	if err != nil {
		return fail(c, err, "Bad Request, invalid pagination")
	}
	return respondOK(c, chatListBody{Chats: views, Page: page})
}

type chatIDBody struct {
	ChatID string `json:"chatId"`
}

// GetChat returns one chat the caller participates in.
func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	var body chatIDBody
	if err := c.BodyParser(&body); err != nil || body.ChatID == "" {
		return badRequest(c, "Bad Request, chatId can't be empty or null")
	}

	view, err := h.svc.GetChat(c.Context(), middleware.UserID(c), body.ChatID)
	if err != nil {
		return fail(c, err, "Chat not found or unauthorized")
	}
	return respondOK(c, view)
}

// Archive / Unarchive / Mute / Unmute / DeleteChat all toggle one per-user
// flag set, idempotently.
func (h *ChatHandler) Archive(c *fiber.Ctx) error {
	return h.setFlag(c, service.FlagArchived, true)
}

func (h *ChatHandler) Unarchive(c *fiber.Ctx) error {
	return h.setFlag(c, service.FlagArchived, false)
}

func (h *ChatHandler) Mute(c *fiber.Ctx) error {
	return h.setFlag(c, service.FlagMuted, true)
}

func (h *ChatHandler) Unmute(c *fiber.Ctx) error {
	return h.setFlag(c, service.FlagMuted, false)
}

func (h *ChatHandler) DeleteChat(c *fiber.Ctx) error {
	return h.setFlag(c, service.FlagDeleted, true)
}

func (h *ChatHandler) setFlag(c *fiber.Ctx, flag string, on bool) error {
	var body chatIDBody
	if err := c.BodyParser(&body); err != nil || body.ChatID == "" {
		return badRequest(c, "Bad Request, chatId can't be empty or null")
	}

	err := h.svc.SetChatFlag(c.Context(), middleware.UserID(c), body.ChatID, flag, on)
	if err != nil {
		return fail(c, err, "Chat not found or unauthorized")
	}
	return respondOK(c, nil)
}

// pagination parses and checks an (index, perPage) pair.
func pagination(indexStr, perPageStr string) (int, int, bool) {
	index, err := strconv.Atoi(indexStr)
	if err != nil || index < 1 {
		return 0, 0, false
	}
	perPage, err := strconv.Atoi(perPageStr)
	if err != nil || perPage < 1 {
		return 0, 0, false
	}
	return index, perPage, true
}
