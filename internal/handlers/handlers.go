package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

// requestContext bounds the store calls made on behalf of one request.
func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.BadRequest("Invalid request body").Wrap(err)
	}
	return nil
}

func message(c *fiber.Ctx, msg string) error {
	return c.JSON(fiber.Map{"message": msg})
}

// ErrorHandler renders every error returned by a handler or middleware as
// {"message", "fields"?, "error"?}. The raw error is exposed only in
// development.
func ErrorHandler(log *zap.Logger, development bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		body := fiber.Map{"message": "Internal server error"}

		var fe *fiber.Error
		if ae, ok := apperr.As(err); ok {
			status = ae.Status
			body["message"] = ae.Message
			if len(ae.Fields) > 0 {
				fields := make(map[string]string, len(ae.Fields))
				for _, f := range ae.Fields {
					fields[f.Field] = f.Message
				}
				body["fields"] = fields
			}
			if development && ae.Err != nil {
				body["error"] = ae.Err.Error()
			}
		} else if errors.As(err, &fe) {
			status = fe.Code
			body["message"] = fe.Message
		} else if development {
			body["error"] = err.Error()
		}

		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Status(status).JSON(body)
	}
}
