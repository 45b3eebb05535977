package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/auth"
)

// UserIDKey is the fiber.Ctx Locals key holding the authenticated user id.
const UserIDKey = "user_id"

// TokenKey holds the raw token so logout can blacklist it.
const TokenKey = "token"

// BlacklistChecker answers whether a token has been logged out. The Redis
// cache is consulted first, Mongo is the source of truth.
type BlacklistChecker interface {
	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)
}

// Authenticated verifies the Bearer token, rejects blacklisted tokens and
// stashes the user id in Locals.
func Authenticated(secret string, fast, durable BlacklistChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ParseBearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, "Unauthorized")
		}

		if blacklisted(c.Context(), token, fast, durable) {
			return unauthorized(c, "Token is invalid")
		}

		claims, err := auth.Verify(secret, token)
		if err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"header": fiber.Map{"errorCode": "403", "message": "Forbidden"},
			})
		}

		c.Locals(UserIDKey, claims.UserID)
		c.Locals(TokenKey, token)
		return c.Next()
	}
}

func blacklisted(ctx context.Context, token string, fast, durable BlacklistChecker) bool {
	if fast != nil {
		if hit, err := fast.IsTokenBlacklisted(ctx, token); err == nil && hit {
			return true
		}
	}
	if durable != nil {
		hit, err := durable.IsTokenBlacklisted(ctx, token)
		if err != nil {
			log.Error().Err(err).Msg("blacklist lookup failed")
			return false
		}
		return hit
	}
	return false
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"header": fiber.Map{"errorCode": "401", "message": msg},
	})
}

// UserID returns the authenticated user id set by Authenticated.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}
