package document

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/handlers"
	"github.com/sahilchouksey/studyhub-api/services/storage"
	"github.com/sahilchouksey/studyhub-api/utils/middleware"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// Download handles GET /api/v1/view/download/:id. Every call counts as a
// download.
func (h *DocumentHandler) Download(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	doc, rc, err := h.documentService.Download(c.UserContext(), id, userID)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to download document")
	}

	c.Attachment(doc.OriginalFilename)
	return c.SendStream(rc)
}

// Preview handles GET /api/v1/view/preview/:id. The file is served inline and
// no counter changes.
func (h *DocumentHandler) Preview(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	doc, rc, err := h.documentService.Preview(c.UserContext(), id, viewerID(c))
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to preview document")
	}

	c.Set(fiber.HeaderContentType, storage.ContentType(doc.OriginalFilename))
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", storage.SecureFilename(doc.OriginalFilename)))
	return c.SendStream(rc)
}
