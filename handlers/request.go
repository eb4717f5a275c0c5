package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/utils/response"
	"github.com/sahilchouksey/studyhub-api/utils/validation"
)

var validate = validation.NewValidator()

// ParseID reads a positive numeric route parameter
func ParseID(c *fiber.Ctx, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Bind parses the body into dst and runs its validate tags. When it returns
// false the error response has already been written.
func Bind(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, response.BadRequest(c, "Invalid request body")
	}
	if err := validate.ValidateStruct(dst); err != nil {
		return false, response.ValidationFailed(c, validation.FormatValidationErrors(err))
	}
	return true, nil
}

// Page reads page and limit query values
func Page(c *fiber.Ctx) (page, limit, offset int) {
	return response.PageParams(c.QueryInt("page", 1), c.QueryInt("limit", 20))
}
