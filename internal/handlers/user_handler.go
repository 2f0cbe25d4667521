package handlers

import (
	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/middleware"
	"github.com/arzan03/EduHub/internal/models"
	"github.com/arzan03/EduHub/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List returns all users, optionally narrowed by ?role= and ?q=.
func (h *UserHandler) List(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.users.List(ctx, models.UserFilter{Role: c.Query("role"), Query: c.Query("q")})
	if err != nil {
		return err
	}
	return c.JSON(users)
}

func (h *UserHandler) Students(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.users.Students(ctx)
	if err != nil {
		return err
	}
	return c.JSON(users)
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.Get(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	var req services.UpdateProfileInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.UpdateProfile(ctx, middleware.CurrentActor(c), req)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// UploadAvatar accepts a multipart form with the image in the "avatar" field.
func (h *UserHandler) UploadAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return apperr.BadRequest("Avatar file is required").Wrap(err)
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.Internal(err)
	}
	defer f.Close()

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.UploadAvatar(ctx, middleware.CurrentActor(c), services.AvatarUpload{
		Body:        f,
		Size:        fh.Size,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
	})
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.users.Delete(ctx, middleware.CurrentActor(c), c.Params("id")); err != nil {
		return err
	}
	return message(c, "User deleted successfully")
}
