package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Pinger checks that the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	version string
	started time.Time
	log     *zap.Logger
}

func NewHealthHandler(db Pinger, version string, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, version: version, started: time.Now(), log: log}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, database, code := "ok", "connected", fiber.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		status, database, code = "degraded", "disconnected", fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"database": database,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"version":  h.version,
	})
}
