package auth

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/handlers"
	"github.com/sahilchouksey/studyhub-api/services"
	authutil "github.com/sahilchouksey/studyhub-api/utils/auth"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"github.com/sahilchouksey/studyhub-api/utils/middleware"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshToken exchanges a refresh token for a new pair. The old refresh
// token is blacklisted.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if ok, err := handlers.Bind(c, &req); !ok {
		return err
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}
	if claims.TokenType != authutil.TokenTypeRefresh {
		return response.Unauthorized(c, "Invalid token type")
	}

	isRevoked, err := h.blacklistService.IsTokenRevoked(c.UserContext(), claims.ID, claims.SessionID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check token status")
	}
	if isRevoked {
		return response.Unauthorized(c, "Token has been revoked")
	}

	user, err := h.users.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return response.Unauthorized(c, "User not found")
		}
		return handlers.ServiceError(c, err, "Failed to load user")
	}
	if user.TokenVersion != claims.TokenVersion {
		return response.Unauthorized(c, "Token has been invalidated")
	}

	var pair *authutil.TokenPair
	if claims.SessionID != "" {
		pair, err = h.jwtManager.GenerateSessionPair(claims.SessionID, user.ID, user.Email, user.Role, user.TokenVersion)
	} else {
		pair, err = h.jwtManager.GeneratePair(user.ID, user.Email, user.Role, user.TokenVersion)
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	if err := h.blacklistService.RevokeToken(c.UserContext(), claims.ID, user.ID, claims.ExpiresAt.Time, "token_refresh"); err != nil {
		// the old token still expires on its own
		logger.Logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to revoke refresh token")
	}

	return response.Success(c, pair)
}

// Logout blacklists the access token used for this request and its session,
// which revokes the refresh token issued with it.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	sessionEnd := time.Now().Add(h.jwtManager.RefreshExpiry())
	if err := h.blacklistService.RevokeSession(c.UserContext(), claims, expiresAt, sessionEnd, "logout"); err != nil {
		return response.InternalServerError(c, "Failed to logout")
	}

	return response.SuccessWithMessage(c, "Successfully logged out", nil)
}
