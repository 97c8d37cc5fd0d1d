package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/busticket/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, seat_unavailable, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errFromDomain maps a use case error onto its HTTP status.
func errFromDomain(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return newError(c, fiber.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidSegment):
		return newError(c, fiber.StatusBadRequest, "invalid_segment", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrSeatUnavailable):
		return newError(c, fiber.StatusConflict, "seat_unavailable", err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		return newError(c, fiber.StatusUnprocessableEntity, "invalid_state", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		c.Set(fiber.HeaderRetryAfter, "1")
		return newError(c, fiber.StatusServiceUnavailable, "store_unavailable", err.Error())
	}
	LoggerFromCtx(c.UserContext()).Error("unhandled error", "path", c.Path(), "error", err)
	return errInternal(c, "internal error")
}
