package middleware

import (
	"strings"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	localUserID = "user_id"
	localRole   = "role"
)

// TokenParser validates a bearer token and returns the caller it names.
type TokenParser interface {
	ParseJWT(token string) (services.Actor, error)
}

// AuthMiddleware validates the JWT in the Authorization header and stores
// the caller's id and role in the request locals.
func AuthMiddleware(tokens TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return apperr.Unauthorized("Missing token")
		}

		// Ensure it's a Bearer token
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		tokenString = strings.TrimSpace(tokenString)
		if !ok || tokenString == "" {
			return apperr.Unauthorized("Invalid token format")
		}

		actor, err := tokens.ParseJWT(tokenString)
		if err != nil {
			return err
		}

		c.Locals(localUserID, actor.ID.Hex())
		c.Locals(localRole, actor.Role)
		return c.Next()
	}
}

// CurrentActor returns the caller established by AuthMiddleware. The zero
// Actor is returned on unauthenticated routes.
func CurrentActor(c *fiber.Ctx) services.Actor {
	hex, _ := c.Locals(localUserID).(string)
	role, _ := c.Locals(localRole).(string)
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return services.Actor{}
	}
	return services.Actor{ID: id, Role: role}
}
