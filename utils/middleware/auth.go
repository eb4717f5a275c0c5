package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/utils/auth"
	"github.com/sahilchouksey/studyhub-api/utils/response"
	"gorm.io/gorm"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	db               *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: auth.NewBlacklistService(db),
		db:               db,
	}
}

// authError carries the status a failed authentication should produce
type authError struct {
	status  int
	message string
}

func (e *authError) Error() string { return e.message }

func unauthorized(msg string) *authError {
	return &authError{status: fiber.StatusUnauthorized, message: msg}
}

// authenticate resolves the bearer token to a user, checking the blacklist
// and the user's current token version.
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Claims, *model.User, *authError) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, nil, unauthorized("Missing authorization token")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, nil, unauthorized("Invalid authorization format")
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, nil, unauthorized("Token has expired")
		}
		return nil, nil, unauthorized("Invalid token")
	}

	if claims.TokenType != auth.TokenTypeAccess {
		return nil, nil, unauthorized("Invalid token type")
	}

	isRevoked, err := m.blacklistService.IsTokenRevoked(c.UserContext(), claims.ID, claims.SessionID)
	if err != nil {
		return nil, nil, &authError{status: fiber.StatusInternalServerError, message: "Failed to check token status"}
	}
	if isRevoked {
		return nil, nil, unauthorized("Token has been revoked")
	}

	var user model.User
	if err := m.db.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, unauthorized("User not found")
		}
		return nil, nil, &authError{status: fiber.StatusInternalServerError, message: "Failed to load user"}
	}

	if user.TokenVersion != claims.TokenVersion {
		return nil, nil, unauthorized("Token has been invalidated")
	}

	return claims, &user, nil
}

func setLocals(c *fiber.Ctx, claims *auth.Claims, user *model.User) {
	c.Locals("user_id", user.ID)
	c.Locals("user_email", user.Email)
	c.Locals("user_role", user.Role)
	c.Locals("claims", claims)
	c.Locals("user", user)
}

func writeAuthError(c *fiber.Ctx, e *authError) error {
	if e.status == fiber.StatusInternalServerError {
		return response.InternalServerError(c, e.message)
	}
	return response.Unauthorized(c, e.message)
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, authErr := m.authenticate(c)
		if authErr != nil {
			return writeAuthError(c, authErr)
		}
		setLocals(c, claims, user)
		return c.Next()
	}
}

// Optional attaches the user when a valid token is present and never rejects
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.Next()
		}
		claims, user, authErr := m.authenticate(c)
		if authErr == nil {
			setLocals(c, claims, user)
		}
		return c.Next()
	}
}

// RequireAdmin is Required plus an admin role check
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, authErr := m.authenticate(c)
		if authErr != nil {
			return writeAuthError(c, authErr)
		}
		if !user.IsAdmin() {
			return response.Forbidden(c, "Admin access required")
		}
		setLocals(c, claims, user)
		return c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	userID := c.Locals("user_id")
	if userID == nil {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	user := c.Locals("user")
	if user == nil {
		return nil, false
	}
	u, ok := user.(*model.User)
	return u, ok
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims := c.Locals("claims")
	if claims == nil {
		return nil, false
	}
	claimsData, ok := claims.(*auth.Claims)
	return claimsData, ok
}
