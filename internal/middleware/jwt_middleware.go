package middleware

import (
	"strings"

	"plantmart/internal/identity"
	"plantmart/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const sessionKey = "session"

// AuthRequired is a Fiber middleware that resolves the bearer token into a
// session and stores it in the request context.
func AuthRequired(authService *services.AuthService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		session, err := authService.Authenticate(c.UserContext(), parts[1])
		if err != nil {
			log.WithError(err).Debug("token validation failed")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}
		c.Locals(sessionKey, session)
		c.Locals("user_id", session.UserID)
		return c.Next()
	}
}

// SessionFrom returns the session stored by AuthRequired, or nil.
func SessionFrom(c *fiber.Ctx) *identity.Session {
	session, _ := c.Locals(sessionKey).(*identity.Session)
	return session
}
