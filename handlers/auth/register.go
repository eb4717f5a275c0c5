package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/handlers"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services"
	authutil "github.com/sahilchouksey/studyhub-api/utils/auth"
	"github.com/sahilchouksey/studyhub-api/utils/middleware"
	"github.com/sahilchouksey/studyhub-api/utils/response"
	"gorm.io/gorm"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	users                *services.UserService
	images               *services.ProfileImageService
	jwtManager           *authutil.JWTManager
	blacklistService     *authutil.BlacklistService
	bruteForceProtection *middleware.BruteForceProtection
}

// NewAuthHandler creates a new auth handler. bruteForceProtection may be nil
// when Redis is not available.
func NewAuthHandler(db *gorm.DB, users *services.UserService, images *services.ProfileImageService, jwtManager *authutil.JWTManager, bruteForceProtection *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		users:                users,
		images:               images,
		jwtManager:           jwtManager,
		blacklistService:     authutil.NewBlacklistService(db),
		bruteForceProtection: bruteForceProtection,
	}
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	FirstName       string `json:"first_name" validate:"required,min=2,max=50"`
	LastName        string `json:"last_name" validate:"required,min=2,max=50"`
	Email           string `json:"email" validate:"required,email,max=120"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"` // in seconds
}

func (h *AuthHandler) issue(user *model.User) (*AuthResponse, error) {
	pair, err := h.jwtManager.GeneratePair(user.ID, user.Email, user.Role, user.TokenVersion)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Register handles user registration
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if ok, err := handlers.Bind(c, &req); !ok {
		return err
	}

	user, err := h.users.Register(c.UserContext(), services.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, authutil.ErrPasswordTooShort) {
			return response.BadRequest(c, err.Error())
		}
		return handlers.ServiceError(c, err, "Failed to create user")
	}

	res, err := h.issue(user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}
	return response.CreatedWithMessage(c, "Registration successful", res)
}
