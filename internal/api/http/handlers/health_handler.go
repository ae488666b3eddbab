package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chatdesk/support-service/internal/persistence"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	pg    *persistence.Postgres
	redis *persistence.Redis
}

// NewHealthHandler constructs handler.
func NewHealthHandler(pg *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{pg: pg, redis: redis}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready GET /health/ready. Reports degraded dependencies without failing the
// probe for Redis alone; realtime fan-out is best-effort.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{"postgres": "ok", "redis": "ok"}
	status := fiber.StatusOK

	if h.pg == nil || h.pg.PoolHandle() == nil {
		checks["postgres"] = "unavailable"
		status = fiber.StatusServiceUnavailable
	} else if err := h.pg.PoolHandle().Ping(c.UserContext()); err != nil {
		checks["postgres"] = "unreachable"
		status = fiber.StatusServiceUnavailable
	}

	if h.redis == nil || h.redis.Ping(c.UserContext()) != nil {
		checks["redis"] = "unreachable"
	}

	return c.Status(status).JSON(fiber.Map{"checks": checks})
}
