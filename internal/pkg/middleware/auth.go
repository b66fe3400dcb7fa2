package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PetsSanta/internal/pkg/usercontext"
)

// RequireAPISessionAuth stops anonymous requests with a JSON 401. It relies
// on UserContextMiddleware having run earlier in the chain.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if usercontext.GetUserID(c) == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	return c.Next()
}
