// FILE: internal/pkg/serverutils/error_handler.go
package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"portfolio-ai-be/internal/apperror"
	"portfolio-ai-be/internal/pkg/logger"
)

// ErrorHandlerMiddleware converts errors bubbling out of handlers into
// the shared response envelope. Domain errors keep their own status and
// message, everything else collapses to a generic 500.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status, message := mapError(err)
		if status >= fiber.StatusInternalServerError {
			log.Error("http", "request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"status": status,
				"error":  err.Error(),
			})
		} else {
			log.Warn("http", "request rejected", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"status": status,
				"error":  err.Error(),
			})
		}

		return ctx.Status(status).JSON(ErrorResponse(status, message))
	}
}

func mapError(err error) (int, string) {
	var fiberErr *fiber.Error
	switch {
	case apperror.IsValidation(err):
		return fiber.StatusBadRequest, err.Error()
	case apperror.IsNotFound(err):
		return fiber.StatusNotFound, err.Error()
	case apperror.IsUpstream(err):
		return fiber.StatusBadGateway, apperror.SafeMessage(err)
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	default:
		return fiber.StatusInternalServerError, apperror.SafeMessage(err)
	}
}
