package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"socialfeed/internal/domain"
	"socialfeed/pkg/log"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error string      `json:"error"`
	Kind  domain.Kind `json:"kind"`
}

// StatusFor maps a domain error kind to an HTTP status.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as an ErrorResponse. Internal causes are logged
// but never returned to the client.
func writeError(c *fiber.Ctx, err error) error {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		log.ErrorCtx(c.UserContext(), "request failed", "path", c.Path(), "error", err)
	}
	return writeKind(c, kind, domain.Message(err))
}

func writeKind(c *fiber.Ctx, kind domain.Kind, msg string) error {
	return c.Status(StatusFor(kind)).JSON(ErrorResponse{Error: msg, Kind: kind})
}

// ErrorHandler renders errors that escape handlers, such as fiber's own
// 404 and 405, in the API error format.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		kind := domain.KindInternal
		switch {
		case fe.Code == fiber.StatusNotFound:
			kind = domain.KindNotFound
		case fe.Code < 500:
			kind = domain.KindValidation
		}
		return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message, Kind: kind})
	}
	return writeError(c, err)
}
