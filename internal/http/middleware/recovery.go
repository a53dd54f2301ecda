package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 instead of a dropped connection.
// A customer mid-booking gets an error page they can retry from, and the
// stack lands in the log with the request id for correlation.
func Recovery(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			fields := []zap.Field{
				zap.Error(fmt.Errorf("panic: %v", r)),
				zap.ByteString("stack", debug.Stack()),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
			}
			if rid := c.Locals("request_id"); rid != nil {
				fields = append(fields, zap.String("request_id", rid.(string)))
			}
			logger.Error("panic recovered", fields...)

			if c.Response().StatusCode() == 0 {
				c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Noe gikk galt, prøv igjen",
				})
			}
		}()

		return c.Next()
	}
}
