package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// AvatarSource serves avatars kept by the API process itself.
type AvatarSource interface {
	Get(key string) ([]byte, string, bool)
}

type AvatarHandler struct {
	source AvatarSource
}

func NewAvatarHandler(source AvatarSource) *AvatarHandler {
	return &AvatarHandler{source: source}
}

func (h *AvatarHandler) Get(c *fiber.Ctx) error {
	data, contentType, ok := h.source.Get(c.Params("*"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Avatar not found")
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(data)
}
