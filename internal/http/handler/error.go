package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"textdocs/internal/http/middleware"
	"textdocs/internal/logger"
	"textdocs/internal/model"
	"textdocs/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
	// Files lists documents saved before a batch upload failed.
	Files []model.DocumentMetadata `json:"files,omitempty"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "VALIDATION_ERROR", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps service errors onto the HTTP taxonomy.
// Only unexpected failures are logged; their detail never reaches the client.
func writeServiceError(c *fiber.Ctx, err error) error {
	var (
		ve *model.ValidationError
		be *service.BatchError
	)
	switch {
	case errors.As(err, &ve):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", ve.Error())
	case errors.Is(err, service.ErrEmptyBatch):
		return writeError(c, fiber.StatusBadRequest, "EMPTY_BATCH", "No files to upload")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "File not found")
	case errors.As(err, &be):
		logger.FromContext(c.UserContext()).Error("batch_upload_failed",
			zap.Int("failed_index", be.FailedIndex),
			zap.Int("saved", len(be.Created)),
			zap.Error(be.Err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(errorPayload{
			RequestID: requestIDFromCtx(c),
			Error: errorEnvelope{
				Code:    "INTERNAL_ERROR",
				Message: "Server error during file content upload",
			},
			Files: be.Created,
		})
	default:
		logger.FromContext(c.UserContext()).Error("request_failed", zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			logger.FromContext(c.UserContext()).Error("unhandled_error", zap.Error(err))
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
