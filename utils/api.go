package utils

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// MakeHTTPHandleFunc adapts a handler that takes its dependencies as an
// argument into a fiber.Handler
func MakeHTTPHandleFunc[T any](handler func(c *fiber.Ctx, deps T) error, deps T) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := handler(c, deps); err != nil {
			logger.Logger.Error().Err(err).Str("path", c.Path()).Msg("handler failed")
			return response.InternalServerError(c, err.Error())
		}
		return nil
	}
}
