package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	{services.ErrNotFound, fiber.StatusNotFound},
	{services.ErrFileMissing, fiber.StatusNotFound},
	{services.ErrForbidden, fiber.StatusForbidden},
	{services.ErrNotMember, fiber.StatusForbidden},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{services.ErrEmailTaken, fiber.StatusConflict},
	{services.ErrAlreadyMember, fiber.StatusConflict},
	{services.ErrJoinRequestPending, fiber.StatusConflict},
	{services.ErrRequestNotPending, fiber.StatusConflict},
	{services.ErrSoleCreatorMember, fiber.StatusConflict},
	{services.ErrGroupIsPrivate, fiber.StatusBadRequest},
	{services.ErrGroupIsPublic, fiber.StatusBadRequest},
	{services.ErrInvalidFileType, fiber.StatusBadRequest},
	{services.ErrEmptyFile, fiber.StatusBadRequest},
	{services.ErrInvalidPDF, fiber.StatusBadRequest},
	{services.ErrInvalidImage, fiber.StatusBadRequest},
	{services.ErrInvalidTag, fiber.StatusBadRequest},
	{services.ErrInvalidStatus, fiber.StatusBadRequest},
	{services.ErrInvalidPriority, fiber.StatusBadRequest},
	{model.ErrInvalidRating, fiber.StatusBadRequest},
	{services.ErrFileTooLarge, fiber.StatusRequestEntityTooLarge},
}

// ServiceError renders err with the status its sentinel maps to. Anything
// unrecognised is logged and answered with a 500 carrying fallback.
func ServiceError(c *fiber.Ctx, err error, fallback string) error {
	for _, m := range statusBySentinel {
		if !errors.Is(err, m.err) {
			continue
		}
		switch m.status {
		case fiber.StatusNotFound:
			return response.NotFound(c, err.Error())
		case fiber.StatusForbidden:
			return response.Forbidden(c, err.Error())
		case fiber.StatusUnauthorized:
			return response.Unauthorized(c, err.Error())
		case fiber.StatusConflict:
			return response.Conflict(c, err.Error())
		case fiber.StatusBadRequest:
			return response.BadRequest(c, err.Error())
		default:
			return response.Error(c, m.status, err.Error(), "PAYLOAD_TOO_LARGE")
		}
	}

	logger.Logger.Error().Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Interface("request_id", c.Locals("requestid")).
		Msg(fallback)
	return response.InternalServerError(c, fallback)
}
