package middleware

import (
	"strings"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/gofiber/fiber/v2"
)

// RequireRole lets the request through only when the caller has one of
// roles. It must run after AuthMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = strings.ToUpper(r[:1]) + r[1:] + "s"
	}
	denied := "Access denied. " + strings.Join(allowed, " and ") + " only."

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(localRole).(string)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		return apperr.Forbidden(denied)
	}
}
