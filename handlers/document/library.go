package document

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/handlers"
	"github.com/sahilchouksey/studyhub-api/utils/middleware"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// FavoriteSummary is the compact favorite listing served at /api/favorites
type FavoriteSummary struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	Course    string `json:"course"`
	Institute string `json:"institute"`
	Subject   string `json:"subject"`
	Author    string `json:"author"`
	Category  string `json:"category"`
	Downloads int    `json:"downloads"`
}

// ToggleFavorite handles POST /api/v1/view/toggle_favorite/:id
func (h *DocumentHandler) ToggleFavorite(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	favorited, err := h.documentService.ToggleFavorite(c.UserContext(), userID, id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to update favorites")
	}

	message := "Removed from favorites"
	if favorited {
		message = "Added to favorites"
	}
	return response.SuccessWithMessage(c, message, fiber.Map{"is_favorite": favorited})
}

// Favorites handles GET /api/v1/view/favorites
func (h *DocumentHandler) Favorites(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	docs, err := h.documentService.Favorites(c.UserContext(), userID)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch favorites")
	}
	return response.Success(c, toResponses(docs))
}

// FavoritesJSON handles GET /api/v1/api/favorites
func (h *DocumentHandler) FavoritesJSON(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	docs, err := h.documentService.Favorites(c.UserContext(), userID)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch favorites")
	}

	out := make([]FavoriteSummary, 0, len(docs))
	for _, d := range docs {
		s := FavoriteSummary{
			ID:        d.ID,
			Title:     d.Title,
			Course:    d.Course,
			Institute: d.Institute,
			Subject:   d.Subject,
			Author:    d.Author.FullName(),
			Downloads: d.Downloads,
		}
		if d.Category != nil {
			s.Category = d.Category.Name
		}
		out = append(out, s)
	}
	return response.Success(c, out)
}

// Uploaded handles GET /api/v1/view/uploaded
func (h *DocumentHandler) Uploaded(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	page, limit, offset := handlers.Page(c)
	docs, total, err := h.documentService.Uploaded(c.UserContext(), userID, limit, offset)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch uploads")
	}
	return response.Paginated(c, toResponses(docs), response.CalculatePagination(page, limit, total))
}

// DeleteDocument handles POST /api/v1/view/delete_document/:id
func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	if err := h.documentService.DeleteDocument(c.UserContext(), userID, id); err != nil {
		return handlers.ServiceError(c, err, "Failed to delete document")
	}
	return response.SuccessWithMessage(c, "Document deleted", nil)
}

// Rate handles POST /api/v1/view/rate/:id
func (h *DocumentHandler) Rate(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	var req RateRequest
	if ok, err := handlers.Bind(c, &req); !ok {
		return err
	}

	doc, err := h.documentService.Rate(c.UserContext(), userID, id, req.Rating)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to rate document")
	}
	return response.SuccessWithMessage(c, "Rating saved", fiber.Map{
		"average_rating": doc.AverageRating(),
		"rating_count":   doc.RatingCount,
	})
}

// AddTag handles POST /api/v1/view/documents/:id/tags
func (h *DocumentHandler) AddTag(c *fiber.Ctx) error {
	return h.changeTag(c, true)
}

// RemoveTag handles DELETE /api/v1/view/documents/:id/tags
func (h *DocumentHandler) RemoveTag(c *fiber.Ctx) error {
	return h.changeTag(c, false)
}

func (h *DocumentHandler) changeTag(c *fiber.Ctx, add bool) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	var req TagRequest
	if ok, err := handlers.Bind(c, &req); !ok {
		return err
	}

	update := h.documentService.RemoveTag
	if add {
		update = h.documentService.AddTag
	}
	doc, err := update(c.UserContext(), userID, id, req.Tag)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to update tags")
	}
	return response.Success(c, doc.ToResponse())
}
