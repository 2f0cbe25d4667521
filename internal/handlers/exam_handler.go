package handlers

import (
	"github.com/arzan03/EduHub/internal/middleware"
	"github.com/arzan03/EduHub/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ExamHandler struct {
	exams *services.ExamService
}

func NewExamHandler(exams *services.ExamService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

func (h *ExamHandler) List(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	exams, err := h.exams.List(ctx, middleware.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.JSON(exams)
}

func (h *ExamHandler) Create(c *fiber.Ctx) error {
	var req services.ExamInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	exam, err := h.exams.Create(ctx, middleware.CurrentActor(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(exam)
}

func (h *ExamHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := h.exams.Get(ctx, middleware.CurrentActor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *ExamHandler) Update(c *fiber.Ctx) error {
	var req services.ExamInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	exam, err := h.exams.Update(ctx, middleware.CurrentActor(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(exam)
}

func (h *ExamHandler) Delete(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.exams.Delete(ctx, middleware.CurrentActor(c), c.Params("id")); err != nil {
		return err
	}
	return message(c, "Exam deleted successfully")
}

func (h *ExamHandler) Assign(c *fiber.Ctx) error {
	var req services.AssignInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	exam, err := h.exams.Assign(ctx, middleware.CurrentActor(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(exam)
}

func (h *ExamHandler) Publish(c *fiber.Ctx) error {
	var req services.PublishInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	exam, err := h.exams.Publish(ctx, middleware.CurrentActor(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(exam)
}

// Submit grades an attempt and returns the stored result.
func (h *ExamHandler) Submit(c *fiber.Ctx) error {
	var req services.SubmitInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.exams.Submit(ctx, middleware.CurrentActor(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *ExamHandler) Results(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	results, err := h.exams.Results(ctx, middleware.CurrentActor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(results)
}

func (h *ExamHandler) MyResults(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	results, err := h.exams.MyResults(ctx, middleware.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.JSON(results)
}

func (h *ExamHandler) Analytics(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	report, err := h.exams.Analytics(ctx, middleware.CurrentActor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(report)
}
