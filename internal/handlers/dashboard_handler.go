package handlers

import (
	"time"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/middleware"
	"github.com/arzan03/EduHub/internal/services"
	"github.com/gofiber/fiber/v2"
)

const dateOnly = "2006-01-02"

type DashboardHandler struct {
	dashboard *services.DashboardService
	calendar  *services.CalendarService
	now       func() time.Time
}

func NewDashboardHandler(dashboard *services.DashboardService, calendar *services.CalendarService) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		calendar:  calendar,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	summary, err := h.dashboard.Summary(ctx, middleware.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

// Calendar lists dated tasks and exams between ?from= and ?to=, defaulting
// to the current month.
func (h *DashboardHandler) Calendar(c *fiber.Ctx) error {
	now := h.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from, err := parseDate(c.Query("from"), monthStart, false)
	if err != nil {
		return err
	}
	to, err := parseDate(c.Query("to"), monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond), true)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	events, err := h.calendar.Events(ctx, middleware.CurrentActor(c), from, to)
	if err != nil {
		return err
	}
	return c.JSON(events)
}

// parseDate accepts RFC3339 or a bare date. A bare date used as the end of
// a range covers the whole day.
func parseDate(raw string, def time.Time, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return time.Time{}, apperr.BadRequest("Dates must be RFC3339 or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}
