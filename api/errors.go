package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/GKaszewski/k-core/pkg/apperr"
	"github.com/GKaszewski/k-core/pkg/broker"
	"github.com/GKaszewski/k-core/pkg/embeddings"
	"github.com/GKaszewski/k-core/pkg/vector"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps an error to an HTTP status using the apperr taxonomy.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	switch {
	case errors.Is(err, embeddings.ErrEmptyText),
		errors.Is(err, vector.ErrDimensionMismatch),
		errors.Is(err, broker.ErrEmptyTopic),
		errors.Is(err, broker.ErrInvalidTopic):
		return fiber.StatusBadRequest
	case errors.Is(err, vector.ErrCollectionMissing):
		return fiber.StatusNotFound
	case errors.Is(err, vector.ErrConnection):
		return fiber.StatusBadGateway
	}

	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return fiber.StatusInternalServerError
	}
	switch ae.Kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindBackend:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler replies with an ErrorResponse. 5xx replies carry a generic
// message; the detail goes to the log.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusFor(err)

		msg := err.Error()
		if status >= fiber.StatusInternalServerError {
			detail := msg
			var ae *apperr.Error
			if errors.As(err, &ae) {
				detail = ae.Detail()
			}
			log.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"error", detail,
			)

			var fe *fiber.Error
			if !errors.As(err, &fe) {
				msg = genericMessage(status)
			}
		}

		return c.Status(status).JSON(ErrorResponse{Error: msg})
	}
}

func genericMessage(status int) string {
	switch status {
	case fiber.StatusBadGateway:
		return "backend unavailable"
	case fiber.StatusServiceUnavailable:
		return "service unavailable"
	default:
		return "internal error"
	}
}
