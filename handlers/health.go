package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/database"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		return response.ServiceUnavailable(c, "Database unavailable")
	}
	return response.Success(c, fiber.Map{"status": "ok"})
}
