package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/auth"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/middleware"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/models"
)

// UserStore is the identity surface the auth endpoints need.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenBlacklist durably stores logged-out tokens.
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, token string) error
}

// BlacklistCache mirrors blacklisted tokens for the middleware fast path.
type BlacklistCache interface {
	CacheBlacklistedToken(ctx context.Context, token string, ttl time.Duration) error
}

// AuthHandler serves register, login and logout.
type AuthHandler struct {
	users     UserStore
	blacklist TokenBlacklist
	cache     BlacklistCache
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthHandler(users UserStore, blacklist TokenBlacklist, cache BlacklistCache, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		users:     users,
		blacklist: blacklist,
		cache:     cache,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

type registerBody struct {
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	PhoneNumber models.PhoneNumber `json:"phoneNumber"`
	Password    string             `json:"password"`
}

// Register creates a user. Duplicate email or phone yields 409.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var body registerBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Bad Request, invalid body")
	}
	switch {
	case strings.TrimSpace(body.Name) == "":
		return badRequest(c, "Bad Request, name can't be empty or null")
	case strings.TrimSpace(body.Email) == "":
		return badRequest(c, "Bad Request, email can't be empty or null")
	case body.PhoneNumber.Code == "" || body.PhoneNumber.Number == "":
		return badRequest(c, "Bad Request, phoneNumber is required")
	case len(body.Password) < 8:
		return badRequest(c, "Bad Request, password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		return fail(c, err, "Server Error")
	}

	user := &models.User{
		Name:         body.Name,
		Email:        body.Email,
		PhoneNumber:  body.PhoneNumber,
		PasswordHash: hash,
	}
	if err := h.users.CreateUser(c.Context(), user); err != nil {
		return fail(c, err, "User with this email or phone already exists")
	}
	return respondCreated(c, fiber.Map{"name": user.Name, "email": user.Email})
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginEnvelope matches the original wire shape: the token rides inside the
// success header.
type loginEnvelope struct {
	Header struct {
		Header
		JWT string `json:"jwt"`
	} `json:"header"`
	Body any `json:"body"`
}

// Login verifies credentials and issues a token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body loginBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Bad Request, invalid body")
	}
	if strings.TrimSpace(body.Email) == "" {
		return badRequest(c, "Bad Request, email can't be empty or null")
	}
	if strings.TrimSpace(body.Password) == "" {
		return badRequest(c, "Bad Request, Password can't be empty or null")
	}

	user, err := h.users.GetUserByEmail(c.Context(), body.Email)
	if err != nil {
		return fail(c, err, "User not found")
	}
	if !auth.CheckPassword(user.PasswordHash, body.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(Envelope{
			Header: Header{ErrorCode: "401", Message: "Invalid credentials"},
		})
	}

	token, err := auth.Sign(h.jwtSecret, user.ID, h.tokenTTL)
	if err != nil {
		return fail(c, err, "Server Error")
	}

	var resp loginEnvelope
	resp.Header.Header = Header{ErrorCode: "00000", Message: "Success"}
	resp.Header.JWT = token
	resp.Body = fiber.Map{"name": user.Name, "email": user.Email}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// Logout blacklists the presented token. Logging out twice succeeds.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, _ := c.Locals(middleware.TokenKey).(string)
	if token == "" {
		return badRequest(c, "No token provided")
	}

	if err := h.blacklist.BlacklistToken(c.Context(), token); err != nil {
		return fail(c, err, "Server Error")
	}
	if h.cache != nil {
		if err := h.cache.CacheBlacklistedToken(c.Context(), token, h.tokenTTL); err != nil {
			log.Warn().Err(err).Msg("blacklist cache write failed")
		}
	}
	return c.Status(fiber.StatusOK).JSON(Envelope{
		Header: Header{ErrorCode: "00000", Message: "Logged out successfully"},
	})
}
