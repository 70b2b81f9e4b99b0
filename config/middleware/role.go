package middleware

import (
	"github.com/gofiber/fiber/v2"

	"qr-attendance-backend/pkg/paseto"
)

// RequireRole gates a route group to a fixed set of roles. Role checks live
// in the route table, not inside handlers, so every endpoint's capability
// requirement is visible in one place.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("user").(*paseto.Claims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or session data corrupted"})
		}

		if _, ok := allowed[claims.Role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied for role " + claims.Role})
		}

		return c.Next()
	}
}
