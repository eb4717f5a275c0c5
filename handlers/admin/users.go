package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/handlers"
	"github.com/sahilchouksey/studyhub-api/utils/middleware"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// ListUsers retrieves all users with pagination
// GET /admin/users
func ListUsers(c *fiber.Ctx, deps *Deps) error {
	page, limit, offset := handlers.Page(c)

	users, total, err := deps.Users.ListUsers(c.UserContext(), limit, offset)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch users")
	}
	return response.Paginated(c, users, response.CalculatePagination(page, limit, total))
}

// DeleteUser removes a user with their documents, groups and questions
// DELETE /admin/users/:id
func DeleteUser(c *fiber.Ctx, deps *Deps) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	// Prevent admin from deleting themselves
	if currentID, ok := middleware.GetUserID(c); ok && currentID == id {
		return response.BadRequest(c, "Cannot delete your own account")
	}

	if err := deps.Users.DeleteUser(c.UserContext(), id); err != nil {
		return handlers.ServiceError(c, err, "Failed to delete user")
	}
	return response.SuccessWithMessage(c, "User deleted successfully", nil)
}
