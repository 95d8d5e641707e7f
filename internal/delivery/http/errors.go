package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/weatherapp/weather/internal/domain"
)

func errorType(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "bad request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not found"
	case fiber.StatusMethodNotAllowed:
		return "method not allowed"
	case fiber.StatusBadGateway:
		return "bad gateway"
	}
	if code >= 500 {
		return "server error"
	}
	return "error"
}

// ErrorHandler renders every error as the JSON error envelope. Server
// errors are logged at error level and therefore reach the exception log.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	attrs := []any{
		"type", "HTTPException",
		"code", code,
		"request_id", requestID(c),
		"client_ip", clientIP(c),
		"method", c.Method(),
		"path", c.Path(),
		"error", err.Error(),
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Warn("request rejected", attrs...)
	}

	return c.Status(code).JSON(domain.ErrorResponse{
		Status:    "error",
		Type:      errorType(code),
		Error:     message,
		RequestID: requestID(c),
	})
}
