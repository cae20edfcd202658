package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// NewAuthMiddleware enforces a static bearer token. With no token configured
// the check is bypassed entirely.
func NewAuthMiddleware(token string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}

		authz := c.Get(fiber.HeaderAuthorization)
		if authz == "" {
			logger.Warn("request rejected, authorization header missing",
				zap.String("path", c.Path()))
			return fiber.NewError(fiber.StatusUnauthorized, "authorization header missing")
		}

		parts := strings.SplitN(authz, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization format, expected: Bearer <token>")
		}
		if parts[1] != token {
			logger.Warn("request rejected, invalid token", zap.String("path", c.Path()))
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}
		return c.Next()
	}
}
