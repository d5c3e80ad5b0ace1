package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"textdocs/internal/logger"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthCheck godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} healthResponse
// @Router /health [get]
func HealthCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(healthResponse{Status: "ok", Message: "Backend service is healthy"})
	}
}

// Readiness godoc
// @Summary Readiness probe, pings the document store
// @Tags health
// @Produce json
// @Success 200 {object} healthResponse
// @Failure 503 {object} errorPayload
// @Router /readyz [get]
func Readiness(store Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			logger.FromContext(ctx).Warn("readiness_failed", zap.Error(err))
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.JSON(healthResponse{Status: "ready", Message: "Document store is reachable"})
	}
}
