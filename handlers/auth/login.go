package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/handlers"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles user login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := handlers.Bind(c, &req); !ok {
		return err
	}

	ip := c.IP()

	user, err := h.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			if h.bruteForceProtection != nil {
				if recErr := h.bruteForceProtection.RecordFailedAttempt(c, ip); recErr != nil {
					logger.Logger.Warn().Err(recErr).Str("ip", ip).Msg("failed to record login attempt")
				}
			}
			return response.Unauthorized(c, "Invalid email or password")
		}
		return handlers.ServiceError(c, err, "Failed to log in")
	}

	// Clear failed attempts on successful login
	if h.bruteForceProtection != nil {
		_ = h.bruteForceProtection.RecordSuccessfulAttempt(c, ip)
	}

	res, err := h.issue(user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}
	return response.Success(c, res)
}
