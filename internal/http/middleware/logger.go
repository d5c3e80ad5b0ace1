package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"textdocs/internal/logger"
)

// Logger emits one structured line per request and attaches a request-scoped
// logger (request_id, trace_id) to the user context for downstream layers.
// Register it after RequestID and the tracing middleware.
func Logger(base *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		fields := make([]zap.Field, 0, 2)
		if rid := RequestIDFromContext(c.UserContext()); rid != "" {
			fields = append(fields, zap.String("request_id", rid))
		}
		if sc := trace.SpanFromContext(c.UserContext()).SpanContext(); sc.HasTraceID() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
		log := base.With(fields...)
		c.SetUserContext(logger.ContextWithLogger(c.UserContext(), log))

		err := c.Next()

		status := statusOf(c, err)
		entry := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
		}
		if status >= fiber.StatusInternalServerError {
			log.Error("http_request", entry...)
		} else {
			log.Info("http_request", entry...)
		}
		return err
	}
}
