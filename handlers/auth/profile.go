package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/handlers"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/services/storage"
	authutil "github.com/sahilchouksey/studyhub-api/utils/auth"
	"github.com/sahilchouksey/studyhub-api/utils/middleware"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"required,min=2,max=50"`
	LastName  string `json:"last_name" validate:"required,min=2,max=50"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// GetProfile returns the current user with contribution counts
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	stats, err := h.users.Stats(c.UserContext(), user.ID)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to load profile")
	}

	return response.Success(c, fiber.Map{
		"user":      user,
		"full_name": user.FullName(),
		"stats":     stats,
	})
}

// UpdateProfile changes the user's names
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req UpdateProfileRequest
	if ok, err := handlers.Bind(c, &req); !ok {
		return err
	}

	user, err := h.users.UpdateNames(c.UserContext(), userID, req.FirstName, req.LastName)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to update profile")
	}
	return response.SuccessWithMessage(c, "Profile updated", user)
}

// ChangePassword verifies the current password and invalidates every
// outstanding token
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req ChangePasswordRequest
	if ok, err := handlers.Bind(c, &req); !ok {
		return err
	}

	if err := h.users.ChangePassword(c.UserContext(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, authutil.ErrPasswordTooShort) {
			return response.BadRequest(c, err.Error())
		}
		if errors.Is(err, services.ErrInvalidCredentials) {
			return response.BadRequest(c, "Current password is incorrect")
		}
		return handlers.ServiceError(c, err, "Failed to change password")
	}
	return response.SuccessWithMessage(c, "Password changed, please log in again", nil)
}

// UploadProfileImage replaces the user's picture with the uploaded file
func (h *AuthHandler) UploadProfileImage(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	fh, err := c.FormFile("profile_image")
	if err != nil {
		return response.BadRequest(c, "No image uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return response.BadRequest(c, "Failed to read upload")
	}
	defer f.Close()

	user, err := h.images.Upload(c.UserContext(), userID, fh.Filename, f)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to update profile image")
	}
	return response.SuccessWithMessage(c, "Profile image updated", user)
}

// ServeProfileImage streams a stored profile picture
func (h *AuthHandler) ServeProfileImage(c *fiber.Ctx) error {
	name := c.Params("name")
	rc, err := h.images.Open(c.UserContext(), name)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to load image")
	}
	c.Set(fiber.HeaderContentType, storage.ContentType(name))
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.SendStream(rc)
}
