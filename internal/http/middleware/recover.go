package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"textdocs/internal/logger"
)

// Recover turns a panic in a downstream handler into a 500 handled by the
// app's ErrorHandler, logging the panic value and stack.
func Recover() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(c.UserContext()).Error("panic_recovered",
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = fiber.NewError(fiber.StatusInternalServerError, fmt.Sprint(r))
			}
		}()
		return c.Next()
	}
}
