// Package handlers exposes the HTTP surface. Every response uses the
// {header:{errorCode,message}} envelope; '00000' marks success.
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/apperr"
)

type Header struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

type Envelope struct {
	Header Header `json:"header"`
	Body   any    `json:"body,omitempty"`
}

func respondOK(c *fiber.Ctx, body any) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{
		Header: Header{ErrorCode: "00000", Message: "Success"},
		Body:   body,
	})
}

func respondCreated(c *fiber.Ctx, body any) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{
		Header: Header{ErrorCode: "00000", Message: "Success"},
		Body:   body,
	})
}

// fail maps a taxonomy error onto its status and errorCode. Anything
// outside the taxonomy is logged and surfaced as a generic server error.
func fail(c *fiber.Ctx, err error, msg string) error {
	status, code := statusOf(err)
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		msg = "Server Error"
	}
	return c.Status(status).JSON(Envelope{Header: Header{ErrorCode: code, Message: msg}})
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrInvalidArgument):
		return fiber.StatusBadRequest, "400"
	case errors.Is(err, apperr.ErrForbidden):
		return fiber.StatusForbidden, "403"
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.StatusNotFound, "404"
	case errors.Is(err, apperr.ErrConflict):
		return fiber.StatusConflict, "409"
	default:
		return fiber.StatusInternalServerError, "-5"
	}
}

// badRequest is the shortcut for field-validation failures.
func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(Envelope{
		Header: Header{ErrorCode: "400", Message: msg},
	})
}
