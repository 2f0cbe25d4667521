package handlers

import (
	"github.com/arzan03/EduHub/internal/middleware"
	"github.com/arzan03/EduHub/internal/services"
	"github.com/gofiber/fiber/v2"
)

type TaskHandler struct {
	tasks *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) List(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	tasks, err := h.tasks.List(ctx, middleware.CurrentActor(c), services.TaskQuery{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
	})
	if err != nil {
		return err
	}
	return c.JSON(tasks)
}

func (h *TaskHandler) Create(c *fiber.Ctx) error {
	var req services.TaskInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	task, err := h.tasks.Create(ctx, middleware.CurrentActor(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *TaskHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	task, err := h.tasks.Get(ctx, middleware.CurrentActor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(task)
}

func (h *TaskHandler) Update(c *fiber.Ctx) error {
	var req services.TaskInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	task, err := h.tasks.Update(ctx, middleware.CurrentActor(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(task)
}

func (h *TaskHandler) UpdateStatus(c *fiber.Ctx) error {
	var req services.TaskStatusInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	task, err := h.tasks.UpdateStatus(ctx, middleware.CurrentActor(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(task)
}

func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.tasks.Delete(ctx, middleware.CurrentActor(c), c.Params("id")); err != nil {
		return err
	}
	return message(c, "Task deleted successfully")
}
