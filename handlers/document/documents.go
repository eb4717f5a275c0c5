package document

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/handlers"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/utils/middleware"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// DocumentHandler handles document-related requests
type DocumentHandler struct {
	documentService *services.DocumentService
	catalogService  *services.CatalogService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService *services.DocumentService, catalogService *services.CatalogService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		catalogService:  catalogService,
	}
}

// UploadRequest holds the form fields sent alongside the file
type UploadRequest struct {
	Title        string `form:"title" validate:"required,max=200"`
	Description  string `form:"description" validate:"max=5000"`
	Institute    string `form:"institute" validate:"max=100"`
	Course       string `form:"course" validate:"max=100"`
	Subject      string `form:"subject" validate:"max=100"`
	AcademicYear string `form:"academic_year" validate:"max=20"`
	Category     string `form:"category" validate:"max=100"`
	Tags         string `form:"tags"` // comma separated
	IsPublic     string `form:"is_public"`
}

// RateRequest carries a single 1..5 rating
type RateRequest struct {
	Rating int `json:"rating" form:"rating" validate:"required,gte=1,lte=5"`
}

// TagRequest names one tag
type TagRequest struct {
	Tag string `json:"tag" form:"tag" validate:"required,max=50"`
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func toResponses(docs []model.Document) []model.DocumentResponse {
	out := make([]model.DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].ToResponse())
	}
	return out
}

// viewerID is 0 for anonymous requests
func viewerID(c *fiber.Ctx) uint {
	id, _ := middleware.GetUserID(c)
	return id
}

// UploadDocument handles POST /api/v1/upload
func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req UploadRequest
	if ok, err := handlers.Bind(c, &req); !ok {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "No file uploaded")
	}
	if fh.Filename == "" {
		return response.BadRequest(c, "No file selected")
	}
	f, err := fh.Open()
	if err != nil {
		return response.BadRequest(c, "Failed to read upload")
	}
	defer f.Close()

	doc, err := h.documentService.UploadDocument(c.UserContext(), services.UploadDocumentRequest{
		UserID:       userID,
		Title:        req.Title,
		Description:  req.Description,
		Institute:    req.Institute,
		Course:       req.Course,
		Subject:      req.Subject,
		AcademicYear: req.AcademicYear,
		Category:     req.Category,
		Tags:         splitTags(req.Tags),
		IsPublic:     req.IsPublic != "false" && req.IsPublic != "0",
		Filename:     fh.Filename,
		Size:         fh.Size,
		Content:      f,
	})
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to upload document")
	}

	return response.CreatedWithMessage(c, "Document uploaded successfully", doc.ToResponse())
}

// Search handles GET /api/v1/view
func (h *DocumentHandler) Search(c *fiber.Ctx) error {
	page, limit, offset := handlers.Page(c)

	params := services.SearchParams{
		Title:     c.Query("title"),
		Institute: c.Query("institute"),
		Course:    c.Query("course"),
		Subject:   c.Query("subject"),
		Author:    c.Query("author"),
		Category:  c.Query("category"),
		ViewerID:  viewerID(c),
		Limit:     limit,
		Offset:    offset,
	}
	if raw := c.Query("min_rating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 5 {
			return response.BadRequest(c, "min_rating must be a number between 0 and 5")
		}
		params.MinRating = &v
	}

	docs, total, err := h.documentService.Search(c.UserContext(), params)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to search documents")
	}
	return response.Paginated(c, toResponses(docs), response.CalculatePagination(page, limit, total))
}

// Recent handles GET /api/v1/view/recent
func (h *DocumentHandler) Recent(c *fiber.Ctx) error {
	docs, err := h.documentService.Recent(c.UserContext(), c.QueryInt("limit", 10))
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch recent documents")
	}
	return response.Success(c, docs)
}

// Popular handles GET /api/v1/view/popular
func (h *DocumentHandler) Popular(c *fiber.Ctx) error {
	docs, err := h.documentService.Popular(c.UserContext(), c.QueryInt("limit", 10))
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch popular documents")
	}
	return response.Success(c, docs)
}

// Categories handles GET /api/v1/view/categories
func (h *DocumentHandler) Categories(c *fiber.Ctx) error {
	categories, err := h.catalogService.ListCategories(c.UserContext())
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch categories")
	}
	return response.Success(c, categories)
}

// PopularTags handles GET /api/v1/view/tags/popular
func (h *DocumentHandler) PopularTags(c *fiber.Ctx) error {
	tags, err := h.catalogService.PopularTags(c.UserContext(), c.QueryInt("limit", 20))
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch tags")
	}
	return response.Success(c, tags)
}

// GetDocument handles GET /api/v1/view/documents/:id
func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	viewer := viewerID(c)
	doc, err := h.documentService.GetDocument(c.UserContext(), id, viewer)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch document")
	}

	favorite := false
	if viewer != 0 {
		if favorite, err = h.documentService.IsFavorite(c.UserContext(), viewer, id); err != nil {
			return handlers.ServiceError(c, err, "Failed to fetch document")
		}
	}

	return response.Success(c, fiber.Map{
		"document":    doc.ToResponse(),
		"is_favorite": favorite,
		"is_owner":    viewer != 0 && doc.UserID == viewer,
	})
}
