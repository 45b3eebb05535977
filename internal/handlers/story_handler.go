package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/middleware"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/models"
)

// StoryStore is the persistence surface for stories.
type StoryStore interface {
	CreateStory(ctx context.Context, s *models.Story) error
	ListActiveStories(ctx context.Context) ([]models.Story, error)
	AddStoryViewer(ctx context.Context, storyID, viewerID string) error
}

// StoryHandler serves the story create/list/view flow.
type StoryHandler struct {
	stories StoryStore
}

func NewStoryHandler(stories StoryStore) *StoryHandler {
	return &StoryHandler{stories: stories}
}

const storyLifetime = 24 * time.Hour

type createStoryBody struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

// CreateStory posts a story that expires after 24 hours.
func (h *StoryHandler) CreateStory(c *fiber.Ctx) error {
	var body createStoryBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Bad Request, invalid body")
	}
	if strings.TrimSpace(body.Content) == "" {
		return badRequest(c, "Bad Request, content can't be empty or null")
	}
	if body.Type != models.StoryImage && body.Type != models.StoryVideo {
		return badRequest(c, "Bad Request, type must be image or video")
	}

	now := time.Now().UTC()
	story := &models.Story{
		Creator:        middleware.UserID(c),
		Content:        body.Content,
		Type:           body.Type,
		ExpirationDate: now.Add(storyLifetime),
		Viewers:        []models.StoryView{},
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.stories.CreateStory(c.Context(), story); err != nil {
		return fail(c, err, "Server Error")
	}
	return respondCreated(c, story)
}

// ListStories returns every story that has not yet expired.
func (h *StoryHandler) ListStories(c *fiber.Ctx) error {
	stories, err := h.stories.ListActiveStories(c.Context())
	if err != nil {
		return fail(c, err, "Server Error")
	}
	if len(stories) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(Envelope{
			Header: Header{ErrorCode: "404", Message: "No stories found"},
		})
	}
	return respondOK(c, stories)
}

type storyIDBody struct {
	StoryID string `json:"storyId"`
}

// ViewStory records the caller as a viewer. Repeat views are no-ops.
func (h *StoryHandler) ViewStory(c *fiber.Ctx) error {
	var body storyIDBody
	if err := c.BodyParser(&body); err != nil || body.StoryID == "" {
		return badRequest(c, "Bad Request, storyId is required")
	}

	if err := h.stories.AddStoryViewer(c.Context(), body.StoryID, middleware.UserID(c)); err != nil {
		return fail(c, err, "Story not found")
	}
	return respondOK(c, nil)
}
