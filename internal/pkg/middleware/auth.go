package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tlcshift/ShiftMarket/internal/pkg/config"
	"github.com/tlcshift/ShiftMarket/internal/pkg/token"
)

const (
	// Locals keys set by the auth middleware.
	LocalUserID    = "user_id"
	LocalUserEmail = "user_email"
)

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// JWTAuth rejects requests without a valid bearer token and stores the
// authenticated user's id and email in Locals.
func JWTAuth(settings *config.Settings) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Not authenticated",
			})
		}

		claims, err := token.Verify(settings.SecretKey, raw)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Could not validate credentials",
			})
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalUserEmail, claims.Email)
		return c.Next()
	}
}

// OptionalJWTAuth populates Locals when a valid bearer token is present but
// lets anonymous requests through.
func OptionalJWTAuth(settings *config.Settings) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw != "" {
			if claims, err := token.Verify(settings.SecretKey, raw); err == nil {
				c.Locals(LocalUserID, claims.UserID)
				c.Locals(LocalUserEmail, claims.Email)
			}
		}
		return c.Next()
	}
}

// UserID reads the authenticated user id set by JWTAuth. The second return
// is false for anonymous requests.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok
}
