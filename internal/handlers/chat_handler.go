package handlers

import (
	"time"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/middleware"
	"github.com/arzan03/EduHub/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Send(c *fiber.Ctx) error {
	var req services.SendMessageInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	msg, err := h.chat.Send(ctx, middleware.CurrentActor(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// Conversation pages through messages with one user: ?limit= and ?before=
// (RFC3339) move backwards in time.
func (h *ChatHandler) Conversation(c *fiber.Ctx) error {
	q := services.ConversationQuery{Limit: c.QueryInt("limit", 0)}
	if raw := c.Query("before"); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return apperr.BadRequest("before must be an RFC3339 timestamp")
		}
		q.Before = &before
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	msgs, err := h.chat.Conversation(ctx, middleware.CurrentActor(c), c.Params("userId"), q)
	if err != nil {
		return err
	}
	return c.JSON(msgs)
}

func (h *ChatHandler) Conversations(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	convs, err := h.chat.Conversations(ctx, middleware.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.JSON(convs)
}

func (h *ChatHandler) Unread(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.chat.Unread(ctx, middleware.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": n})
}

func (h *ChatHandler) Delete(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.chat.Delete(ctx, middleware.CurrentActor(c), c.Params("id")); err != nil {
		return err
	}
	return message(c, "Message deleted successfully")
}
