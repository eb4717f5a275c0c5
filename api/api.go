package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
}

// NewAPIServer creates the fiber app. bodyLimitMB bounds multipart uploads.
func NewAPIServer(listenAddress string, bodyLimitMB int) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:      "StudyHub API",
			BodyLimit:    (bodyLimitMB + 1) * 1024 * 1024,
			ErrorHandler: ErrorHandler,
		}),
		listenAddress: listenAddress,
	}
}

// ErrorHandler renders errors that escape handlers in the JSON envelope
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return response.NotFound(c, fe.Message)
		case fiber.StatusRequestEntityTooLarge:
			return response.Error(c, fe.Code, fe.Message, "PAYLOAD_TOO_LARGE")
		case fiber.StatusMethodNotAllowed:
			return response.Error(c, fe.Code, fe.Message, "METHOD_NOT_ALLOWED")
		}
		if fe.Code < fiber.StatusInternalServerError {
			return response.BadRequest(c, fe.Message)
		}
	}

	logger.Logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	return response.InternalServerError(c, "Internal server error")
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	logger.Logger.Info().Str("address", s.listenAddress).Msg("starting API server")
	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}
